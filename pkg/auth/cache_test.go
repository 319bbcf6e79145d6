package auth_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scribe/pkg/auth"
)

type countingVerifier struct {
	mu     sync.Mutex
	calls  int
	claims *auth.Claims
	err    error
}

func (c *countingVerifier) Verify(context.Context, string) (*auth.Claims, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.claims, nil
}

func (c *countingVerifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var _ = Describe("CachingVerifier", func() {
	var (
		inner    *countingVerifier
		verifier *auth.CachingVerifier
		now      time.Time
	)

	BeforeEach(func() {
		now = time.Now()
		inner = &countingVerifier{claims: &auth.Claims{Subject: "user_1", ExpiresAt: now.Add(time.Hour)}}

		var err error
		verifier, err = auth.NewCachingVerifier(inner, time.Minute)
		Expect(err).NotTo(HaveOccurred())
		auth.SetClock(verifier, func() time.Time { return now })
	})

	AfterEach(func() {
		verifier.Close()
	})

	It("reuses a verified token", func() {
		for range 3 {
			claims, err := verifier.Verify(context.Background(), "token-a")
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.Subject).To(Equal("user_1"))
		}
		Expect(inner.Calls()).To(Equal(1))
	})

	It("keys the cache by token", func() {
		_, err := verifier.Verify(context.Background(), "token-a")
		Expect(err).NotTo(HaveOccurred())
		_, err = verifier.Verify(context.Background(), "token-b")
		Expect(err).NotTo(HaveOccurred())
		Expect(inner.Calls()).To(Equal(2))
	})

	It("never caches failures", func() {
		inner.err = auth.ErrMalformedToken
		for range 2 {
			_, err := verifier.Verify(context.Background(), "token-a")
			Expect(err).To(MatchError(auth.ErrUnauthorized))
		}
		Expect(inner.Calls()).To(Equal(2))
	})

	It("re-verifies once the token has expired", func() {
		_, err := verifier.Verify(context.Background(), "token-a")
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(2 * time.Hour)
		inner.err = errors.Join(auth.ErrUnauthorized, errors.New("token is expired"))

		_, err = verifier.Verify(context.Background(), "token-a")
		Expect(err).To(MatchError(auth.ErrUnauthorized))
		Expect(inner.Calls()).To(Equal(2))
	})

	It("does not cache tokens that are already past expiry", func() {
		inner.claims = &auth.Claims{Subject: "user_1", ExpiresAt: now.Add(-time.Second)}
		for range 2 {
			_, err := verifier.Verify(context.Background(), "token-a")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(inner.Calls()).To(Equal(2))
	})
})
