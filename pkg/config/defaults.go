package config

const (
	defaultListen   = ":8000"
	defaultProvider = "gemini"
	defaultOrigin   = "*"
	defaultLeeway   = "30s"

	defaultClientTarget = "http://localhost:8000"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:         defaultListen,
			AllowedOrigins: []string{defaultOrigin},
		},
		Auth: AuthConfig{
			Leeway: defaultLeeway,
		},
		Model: ModelConfig{
			Provider: defaultProvider,
		},
		Client: ClientConfig{
			Target: defaultClientTarget,
		},
	}
}
