package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/scribe/pkg/auth"
)

var _ = Describe("JWKS", func() {
	It("verifies tokens against a static key set", func() {
		k, err := keyfunc.NewJWKSetJSON(jwksJSON(signingKey))
		Expect(err).NotTo(HaveOccurred())

		verifier := auth.NewJWTVerifier(k.Keyfunc, auth.JWTConfig{})
		claims, err := verifier.Verify(context.Background(), sign(signingKey, jwt.SigningMethodRS256, validClaims()))
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Subject).To(Equal("user_2abc"))

		_, err = verifier.Verify(context.Background(), sign(otherKey, jwt.SigningMethodRS256, validClaims()))
		Expect(err).To(MatchError(auth.ErrUnauthorized))
	})

	Describe("NewJWKSVerifier", func() {
		var (
			server *httptest.Server
			ctx    context.Context
			cancel context.CancelFunc
		)

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write(jwksJSON(signingKey))
			}))
			ctx, cancel = context.WithCancel(context.Background())
		})

		AfterEach(func() {
			cancel()
			server.Close()
		})

		It("fetches keys from the remote set", func() {
			verifier, err := auth.NewJWKSVerifier(ctx, server.URL+"/.well-known/jwks.json", auth.JWTConfig{})
			Expect(err).NotTo(HaveOccurred())

			token := sign(signingKey, jwt.SigningMethodRS256, validClaims())
			Eventually(func() error {
				_, err := verifier.Verify(ctx, token)
				return err
			}).Should(Succeed())
		})

		It("requires a URL", func() {
			_, err := auth.NewJWKSVerifier(ctx, "", auth.JWTConfig{})
			Expect(err).To(MatchError(ContainSubstring("JWKS URL is required")))
		})
	})
})
