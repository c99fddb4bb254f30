package ports

import "context"

// ShowAdsClient is the transport to the remote ShowAds API. Methods return
// the HTTP status code of the response; err is reserved for transport
// failures (no response at all).
type ShowAdsClient interface {
	// RequestToken calls POST /auth. token is only meaningful when status is 200.
	RequestToken(ctx context.Context, projectKey string) (token string, status int, err error)

	// Post sends payload as JSON to path with the given bearer token.
	Post(ctx context.Context, path, token string, payload any) (status int, err error)
}
