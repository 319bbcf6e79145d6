package testutils

import (
	"context"
	"time"

	"github.com/papercomputeco/scribe/pkg/auth"
)

// MockVerifier accepts exactly the tokens in Tokens.
type MockVerifier struct {
	Tokens map[string]*auth.Claims
}

// NewMockVerifier returns a verifier that accepts token for subject.
func NewMockVerifier(token, subject string) *MockVerifier {
	return &MockVerifier{Tokens: map[string]*auth.Claims{
		token: {Subject: subject, ExpiresAt: time.Now().Add(time.Hour)},
	}}
}

func (m *MockVerifier) Verify(_ context.Context, token string) (*auth.Claims, error) {
	if c, ok := m.Tokens[token]; ok {
		return c, nil
	}
	return nil, auth.ErrUnauthorized
}
