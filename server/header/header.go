// Package header sets the response headers scribe sends on streaming and
// rejected requests.
//
// Streams pass through reverse proxies and CDNs like so:
//
//	Client <--> Edge proxy <--> scribe
//
// and every header here exists so that the middle hop forwards each event as
// soon as it is written instead of buffering or compressing the body.
package header

import (
	"github.com/gofiber/fiber/v2"
)

const (
	// RequestID carries the per-request correlation id in both directions.
	RequestID = "X-Request-ID"

	// AccelBuffering disables response buffering in nginx-style proxies.
	AccelBuffering = "X-Accel-Buffering"
)

// streamHeaders is the fixed set of headers for text/event-stream responses.
var streamHeaders = map[string]string{
	fiber.HeaderContentType:  "text/event-stream",
	fiber.HeaderCacheControl: "no-cache",
	fiber.HeaderConnection:   "keep-alive",
	AccelBuffering:           "no",
}

// SetStreamHeaders marks the response as an unbuffered event stream.
func SetStreamHeaders(c *fiber.Ctx) {
	for k, v := range streamHeaders {
		c.Set(k, v)
	}
	// Compressing middleware would hold events back until a block fills.
	c.Response().Header.Del(fiber.HeaderContentEncoding)
}

// SetBearerChallenge adds the RFC 6750 challenge sent with 401 responses.
func SetBearerChallenge(c *fiber.Ctx, description string) {
	v := `Bearer realm="scribe"`
	if description != "" {
		v += `, error="invalid_token", error_description="` + description + `"`
	}
	c.Set(fiber.HeaderWWWAuthenticate, v)
}
