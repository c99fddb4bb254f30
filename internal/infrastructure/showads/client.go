package showads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/showads/data-connector/internal/core/ports"
)

const (
	defaultTimeout = 30 * time.Second
	pathAuth       = "/auth"
)

// Config captures the settings for talking to the ShowAds API.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

type authRequest struct {
	ProjectKey string `json:"ProjectKey"`
}

type authResponse struct {
	AccessToken string `json:"AccessToken"`
}

// Client implements ports.ShowAdsClient over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client. A default timeout is applied when none is provided.
func NewClient(cfg Config) ports.ShowAdsClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RequestToken exchanges the project key for an access token.
func (c *Client) RequestToken(ctx context.Context, projectKey string) (string, int, error) {
	resp, err := c.do(ctx, pathAuth, "", authRequest{ProjectKey: projectKey})
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, nil
	}

	var body authResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", resp.StatusCode, fmt.Errorf("decode auth response: %w", err)
	}
	return body.AccessToken, resp.StatusCode, nil
}

// Post sends payload to path with a bearer token and returns the status code.
func (c *Client) Post(ctx context.Context, path, token string, payload any) (int, error) {
	resp, err := c.do(ctx, path, token, payload)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) do(ctx context.Context, path, token string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", path, err)
	}
	return resp, nil
}
