package config

import (
	"fmt"
	"strings"
	"time"
)

// Config represents the persistent scribe configuration stored as config.toml
// in the .scribe/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Server  ServerConfig `toml:"server"`
	Auth    AuthConfig   `toml:"auth"`
	Model   ModelConfig  `toml:"model"`
	Client  ClientConfig `toml:"client"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen         string   `toml:"listen,omitempty"`
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
}

// AuthConfig holds bearer token verification settings.
// JWKSURL is required by "scribe serve"; the remaining fields are optional
// claim checks.
type AuthConfig struct {
	JWKSURL           string   `toml:"jwks_url,omitempty"`
	Issuer            string   `toml:"issuer,omitempty"`
	Audience          string   `toml:"audience,omitempty"`
	AuthorizedParties []string `toml:"authorized_parties,omitempty"`
	Leeway            string   `toml:"leeway,omitempty"`
}

// ModelConfig selects the streaming model provider.
type ModelConfig struct {
	Provider string `toml:"provider,omitempty"`
	Name     string `toml:"name,omitempty"`
	Upstream string `toml:"upstream,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// scribe server (e.g. scribe summarize). Target is a full URL.
type ClientConfig struct {
	Target string `toml:"target,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.allowed_origins": {
		get: func(c *Config) string { return strings.Join(c.Server.AllowedOrigins, ",") },
		set: func(c *Config, v string) error { c.Server.AllowedOrigins = SplitList(v); return nil },
	},
	"auth.jwks_url": {
		get: func(c *Config) string { return c.Auth.JWKSURL },
		set: func(c *Config, v string) error { c.Auth.JWKSURL = v; return nil },
	},
	"auth.issuer": {
		get: func(c *Config) string { return c.Auth.Issuer },
		set: func(c *Config, v string) error { c.Auth.Issuer = v; return nil },
	},
	"auth.audience": {
		get: func(c *Config) string { return c.Auth.Audience },
		set: func(c *Config, v string) error { c.Auth.Audience = v; return nil },
	},
	"auth.authorized_parties": {
		get: func(c *Config) string { return strings.Join(c.Auth.AuthorizedParties, ",") },
		set: func(c *Config, v string) error { c.Auth.AuthorizedParties = SplitList(v); return nil },
	},
	"auth.leeway": {
		get: func(c *Config) string { return c.Auth.Leeway },
		set: func(c *Config, v string) error {
			if v == "" {
				c.Auth.Leeway = ""
				return nil
			}
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for auth.leeway: %w", err)
			}
			c.Auth.Leeway = v
			return nil
		},
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.upstream": {
		get: func(c *Config) string { return c.Model.Upstream },
		set: func(c *Config, v string) error { c.Model.Upstream = v; return nil },
	},
	"model.api_key": {
		get: func(c *Config) string { return c.Model.APIKey },
		set: func(c *Config, v string) error { c.Model.APIKey = v; return nil },
	},
	"client.target": {
		get: func(c *Config) string { return c.Client.Target },
		set: func(c *Config, v string) error { c.Client.Target = v; return nil },
	},
}

// SplitList splits a comma separated value, trimming whitespace and
// dropping empty entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
