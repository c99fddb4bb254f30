package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/showads/data-connector/internal/core/ports"
	"github.com/showads/data-connector/internal/pkg/metrics"
)

const (
	// DefaultAuthAttempts is the number of /auth calls made per refresh.
	DefaultAuthAttempts = 3
	// UnlimitedAttempts makes Refresh retry until it obtains a token.
	UnlimitedAttempts = -1
)

// CredentialStore owns the bearer token used for ShowAds calls. It is shared
// by every request; all access goes through mu.
type CredentialStore struct {
	client     ports.ShowAdsClient
	cache      ports.TokenCache // optional
	projectKey string
	log        zerolog.Logger

	mu    sync.Mutex
	token string
}

// NewCredentialStore returns an empty store. cache may be nil.
func NewCredentialStore(client ports.ShowAdsClient, cache ports.TokenCache, projectKey string, log zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		client:     client,
		cache:      cache,
		projectKey: projectKey,
		log:        log.With().Str("component", "credentials").Logger(),
	}
}

// Token returns the current token, possibly empty.
func (s *CredentialStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Reset forgets the current token.
func (s *CredentialStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}

// EnsureToken makes sure a token is present. It does not check that the
// token is still accepted by the remote API.
func (s *CredentialStore) EnsureToken(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return
	}
	if s.loadCachedLocked(ctx) {
		return
	}
	s.refreshLocked(ctx, DefaultAuthAttempts)
}

// Refresh requests a new token, making at most maxAttempts calls
// (UnlimitedAttempts for no limit). On exhaustion the token is left empty.
func (s *CredentialStore) Refresh(ctx context.Context, maxAttempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked(ctx, maxAttempts)
}

// RefreshRejected refreshes after the remote API rejected the token
// `rejected`. When another caller has already replaced that token the call
// does nothing, so concurrent 401s produce a single refresh.
func (s *CredentialStore) RefreshRejected(ctx context.Context, rejected string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != rejected {
		s.log.Debug().Msg("token already refreshed by another request")
		return
	}
	s.refreshLocked(ctx, DefaultAuthAttempts)
}

func (s *CredentialStore) loadCachedLocked(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	token, err := s.cache.Load(ctx, s.projectKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("token cache read failed")
		return false
	}
	if token == "" {
		return false
	}
	s.token = token
	metrics.TokenRefreshTotal.WithLabelValues("cached").Inc()
	s.log.Debug().Msg("access token loaded from cache")
	return true
}

func (s *CredentialStore) refreshLocked(ctx context.Context, maxAttempts int) {
	for attempt := 1; maxAttempts == UnlimitedAttempts || attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			// A cancelled refresh leaves the token and the cache untouched.
			s.log.Warn().Err(ctx.Err()).Int("attempt", attempt).Msg("access token request abandoned")
			return
		}

		token, status, err := s.client.RequestToken(ctx, s.projectKey)
		if err != nil {
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("access token request fail: transport error")
			continue
		}
		if status == http.StatusOK {
			s.token = token
			s.saveCachedLocked(ctx)
			metrics.TokenRefreshTotal.WithLabelValues("ok").Inc()
			s.log.Debug().Int("attempt", attempt).Msg("access token loaded")
			return
		}

		s.log.Warn().Int("attempt", attempt).Int("status", status).
			Msgf("access token request fail: %s", authFailureReason(status))
	}

	s.token = ""
	if s.cache != nil {
		if err := s.cache.Clear(ctx, s.projectKey); err != nil {
			s.log.Warn().Err(err).Msg("token cache clear failed")
		}
	}
	metrics.TokenRefreshTotal.WithLabelValues("exhausted").Inc()
	s.log.Error().Msg("access token request fail: unable to fetch auth token")
}

func (s *CredentialStore) saveCachedLocked(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, s.projectKey, s.token); err != nil {
		s.log.Warn().Err(err).Msg("token cache write failed")
	}
}

func authFailureReason(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "project key missing"
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusTooManyRequests:
		return "too many requests"
	default:
		return fmt.Sprintf("request return code %d", status)
	}
}
