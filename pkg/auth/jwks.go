package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
)

// NewJWKSVerifier returns a JWTVerifier whose keys come from the JWKS at url.
// The key set is refreshed in the background until ctx is done.
func NewJWKSVerifier(ctx context.Context, url string, cfg JWTConfig) (*JWTVerifier, error) {
	if url == "" {
		return nil, fmt.Errorf("auth: JWKS URL is required")
	}

	k, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("auth: loading JWKS from %s: %w", url, err)
	}
	return NewJWTVerifier(k.Keyfunc, cfg), nil
}
