package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/scribe/pkg/auth"
	"github.com/papercomputeco/scribe/server/header"
)

const (
	localsRequestID = "requestid"
	localsClaims    = "claims"
)

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localsRequestID).(string)
	return id
}

// claimsFrom returns the claims stored by authenticate.
func claimsFrom(c *fiber.Ctx) *auth.Claims {
	claims, _ := c.Locals(localsClaims).(*auth.Claims)
	return claims
}

// authenticate rejects requests without a valid bearer token before the body
// is read, and stores the verified claims in c.Locals.
func (s *Server) authenticate(c *fiber.Ctx) error {
	token, err := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if err == nil {
		var claims *auth.Claims
		claims, err = s.verifier.Verify(c.UserContext(), token)
		if err == nil {
			c.Locals(localsClaims, claims)
			s.logger.Debug("authenticated request",
				"request_id", requestID(c),
				"subject", claims.Subject,
			)
			return c.Next()
		}
	}

	s.metrics.authRejections.Inc()
	s.logger.Info("rejected request",
		"request_id", requestID(c),
		"path", c.Path(),
		"error", err,
	)

	description := "the access token is invalid"
	if errors.Is(err, auth.ErrMissingToken) {
		description = ""
	}
	header.SetBearerChallenge(c, description)
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized"})
}

// logRequests logs one line per request once the handler returns. Streaming
// responses are logged when the stream is committed; the relay logs its own
// completion.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	s.logger.Info("request",
		"request_id", requestID(c),
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"duration", time.Since(start),
	)
	return err
}

// errorHandler renders errors escaping handlers as JSON.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		msg = e.Message
	}
	return c.Status(code).JSON(ErrorResponse{Error: msg})
}
