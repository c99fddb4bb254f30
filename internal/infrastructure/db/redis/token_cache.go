package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// TokenCache shares the ShowAds access token between connector processes.
// Key format: data-connector:token:<project_key>. Entries never expire; a
// token is replaced only after the API rejects it.
type TokenCache struct {
	client *redis.Client
}

// NewTokenCache creates a TokenCache wrapping the given Redis client.
func NewTokenCache(client *redis.Client) *TokenCache {
	return &TokenCache{client: client}
}

// Load returns the cached token, or "" when none is stored.
func (c *TokenCache) Load(ctx context.Context, projectKey string) (string, error) {
	token, err := c.client.Get(ctx, c.key(projectKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token cache load: %w", err)
	}
	return token, nil
}

// Save stores token for projectKey.
func (c *TokenCache) Save(ctx context.Context, projectKey, token string) error {
	if err := c.client.Set(ctx, c.key(projectKey), token, 0).Err(); err != nil {
		return fmt.Errorf("token cache save: %w", err)
	}
	return nil
}

// Clear removes the cached token for projectKey.
func (c *TokenCache) Clear(ctx context.Context, projectKey string) error {
	if err := c.client.Del(ctx, c.key(projectKey)).Err(); err != nil {
		return fmt.Errorf("token cache clear: %w", err)
	}
	return nil
}

func (c *TokenCache) key(projectKey string) string {
	return "data-connector:token:" + projectKey
}
