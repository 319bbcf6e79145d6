// Package auth verifies bearer JWTs issued by an external identity provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnauthorized is wrapped by every error returned from this package.
var ErrUnauthorized = errors.New("unauthorized")

var (
	ErrMissingToken   = fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	ErrMalformedToken = fmt.Errorf("%w: malformed authorization header", ErrUnauthorized)
)

// Claims is the verified subset of a token's claim set.
type Claims struct {
	Subject         string
	Issuer          string
	Audience        []string
	AuthorizedParty string
	ExpiresAt       time.Time

	// Raw holds every claim as decoded from the token.
	Raw map[string]any
}

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMalformedToken
	}

	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", ErrMalformedToken
	}
	return token, nil
}
