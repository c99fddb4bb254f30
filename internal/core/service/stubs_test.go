package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/showads/data-connector/internal/core/domain"
)

// ---------------------------------------------------------------------------
// ShowAds stub
// ---------------------------------------------------------------------------

type postCall struct {
	path    string
	token   string
	payload any
}

// stubShowAds answers /auth from authStatuses (last value repeats) and the
// banner endpoints from postFn, or 200 for any non-empty token when postFn is nil.
type stubShowAds struct {
	mu sync.Mutex

	authStatuses []int
	authErr      error
	tokenPrefix  string
	authCalls    int

	postFn func(call postCall, n int) (int, error)
	posts  []postCall
}

func (s *stubShowAds) RequestToken(_ context.Context, _ string) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.authCalls++
	if s.authErr != nil {
		return "", 0, s.authErr
	}
	status := http.StatusOK
	if len(s.authStatuses) > 0 {
		idx := min(s.authCalls-1, len(s.authStatuses)-1)
		status = s.authStatuses[idx]
	}
	if status != http.StatusOK {
		return "", status, nil
	}
	prefix := s.tokenPrefix
	if prefix == "" {
		prefix = "token"
	}
	return fmt.Sprintf("%s-%d", prefix, s.authCalls), status, nil
}

func (s *stubShowAds) Post(_ context.Context, path, token string, payload any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := postCall{path: path, token: token, payload: payload}
	s.posts = append(s.posts, call)
	if s.postFn != nil {
		return s.postFn(call, len(s.posts))
	}
	if token == "" {
		return http.StatusUnauthorized, nil
	}
	return http.StatusOK, nil
}

// ---------------------------------------------------------------------------
// Fallback stub
// ---------------------------------------------------------------------------

type stubFallback struct {
	err     error
	batches [][]domain.Record
}

func (f *stubFallback) Persist(records []domain.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.batches = append(f.batches, append([]domain.Record(nil), records...))
	return "/tmp/unsent_2026-10-18.csv", nil
}

func (f *stubFallback) stored() []domain.Record {
	var out []domain.Record
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

// ---------------------------------------------------------------------------
// Journal and cache stubs
// ---------------------------------------------------------------------------

type stubJournal struct {
	err      error
	outcomes []domain.DeliveryOutcome
}

func (j *stubJournal) RecordOutcome(_ context.Context, o domain.DeliveryOutcome) error {
	j.outcomes = append(j.outcomes, o)
	return j.err
}

type stubTokenCache struct {
	tokens  map[string]string
	loadErr error
	cleared int
}

func newStubTokenCache() *stubTokenCache {
	return &stubTokenCache{tokens: make(map[string]string)}
}

func (c *stubTokenCache) Load(_ context.Context, key string) (string, error) {
	if c.loadErr != nil {
		return "", c.loadErr
	}
	return c.tokens[key], nil
}

func (c *stubTokenCache) Save(_ context.Context, key, token string) error {
	c.tokens[key] = token
	return nil
}

func (c *stubTokenCache) Clear(_ context.Context, key string) error {
	c.cleared++
	delete(c.tokens, key)
	return nil
}

var errDiskFull = errors.New("disk full")

var fixedNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
