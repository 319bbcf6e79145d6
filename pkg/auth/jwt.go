package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Algorithms accepted for signed tokens. Symmetric algorithms are never
// accepted because the keys come from a public JWKS.
var validMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "PS256"}

// JWTConfig holds optional claim checks. Empty fields are not checked.
type JWTConfig struct {
	Issuer   string
	Audience string

	// AuthorizedParties restricts the "azp" claim when the token carries one.
	AuthorizedParties []string

	// Leeway tolerates clock skew on exp, nbf and iat.
	Leeway time.Duration
}

// JWTVerifier verifies signed JWTs with keys resolved by a jwt.Keyfunc.
type JWTVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
	parties []string
}

func NewJWTVerifier(keyfunc jwt.Keyfunc, cfg JWTConfig) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &JWTVerifier{
		keyfunc: keyfunc,
		parser:  jwt.NewParser(opts...),
		parties: slices.Clone(cfg.AuthorizedParties),
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, raw, v.keyfunc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	claims, err := claimsFrom(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrUnauthorized)
	}
	if len(v.parties) > 0 && claims.AuthorizedParty != "" && !slices.Contains(v.parties, claims.AuthorizedParty) {
		return nil, fmt.Errorf("%w: unexpected authorized party %q", ErrUnauthorized, claims.AuthorizedParty)
	}
	return claims, nil
}

func claimsFrom(raw jwt.MapClaims) (*Claims, error) {
	c := &Claims{Raw: map[string]any(raw)}

	var err error
	if c.Subject, err = raw.GetSubject(); err != nil {
		return nil, err
	}
	if c.Issuer, err = raw.GetIssuer(); err != nil {
		return nil, err
	}
	aud, err := raw.GetAudience()
	if err != nil {
		return nil, err
	}
	c.Audience = []string(aud)

	exp, err := raw.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, errors.New("token has no expiry")
	}
	c.ExpiresAt = exp.Time

	if azp, ok := raw["azp"].(string); ok {
		c.AuthorizedParty = azp
	}
	return c, nil
}
