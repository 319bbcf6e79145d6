package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// DefaultCacheTTL caps how long verified claims are reused.
const DefaultCacheTTL = 5 * time.Minute

// CachingVerifier remembers successful verifications until the token expires
// or maxTTL passes, whichever is sooner. Failures are never cached.
type CachingVerifier struct {
	next   Verifier
	cache  *ristretto.Cache[string, *Claims]
	maxTTL time.Duration
	now    func() time.Time
}

func NewCachingVerifier(next Verifier, maxTTL time.Duration) (*CachingVerifier, error) {
	if maxTTL <= 0 {
		maxTTL = DefaultCacheTTL
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *Claims]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: creating token cache: %w", err)
	}

	return &CachingVerifier{next: next, cache: cache, maxTTL: maxTTL, now: time.Now}, nil
}

func (v *CachingVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	key := cacheKey(token)
	if claims, ok := v.cache.Get(key); ok && v.now().Before(claims.ExpiresAt) {
		return claims, nil
	}

	claims, err := v.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	ttl := min(claims.ExpiresAt.Sub(v.now()), v.maxTTL)
	if ttl > 0 {
		v.cache.SetWithTTL(key, claims, 1, ttl)
		v.cache.Wait()
	}
	return claims, nil
}

// Close releases the cache's background goroutines.
func (v *CachingVerifier) Close() {
	v.cache.Close()
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
