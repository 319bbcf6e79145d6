// Package server exposes scribe's HTTP surface: authenticated endpoints that
// stream model output to the caller as server-sent events.
package server

import "time"

// DefaultShutdownTimeout bounds how long Close waits for connections to drain.
const DefaultShutdownTimeout = 10 * time.Second

// Config is the server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8000")
	ListenAddr string

	// AllowedOrigins lists the CORS origins allowed to call the API.
	// Empty means any origin.
	AllowedOrigins []string

	// ShutdownTimeout bounds how long Close waits for connections to drain.
	// Zero means DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return DefaultShutdownTimeout
	}
	return c.ShutdownTimeout
}
