package ports

import "context"

// TokenCache shares the current access token between connector processes.
// Load returns an empty string when nothing is cached.
type TokenCache interface {
	Load(ctx context.Context, projectKey string) (string, error)
	Save(ctx context.Context, projectKey, token string) error
	Clear(ctx context.Context, projectKey string) error
}
