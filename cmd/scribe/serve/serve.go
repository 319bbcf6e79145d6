// Package servecmder provides the serve command that runs the scribe API.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/scribe/pkg/auth"
	"github.com/papercomputeco/scribe/pkg/cliui"
	"github.com/papercomputeco/scribe/pkg/config"
	"github.com/papercomputeco/scribe/pkg/llm"
	"github.com/papercomputeco/scribe/pkg/llm/provider"
	"github.com/papercomputeco/scribe/pkg/logger"
	"github.com/papercomputeco/scribe/server"
)

// ErrMissingJWKSURL is returned when serve has no key set to verify tokens with.
var ErrMissingJWKSURL = errors.New("auth.jwks_url is required (set --jwks-url, SCRIBE_AUTH_JWKS_URL or JWKS_URL)")

// Options is the resolved configuration for one run of the server.
type Options struct {
	Listen         string
	AllowedOrigins []string

	JWKSURL           string
	Issuer            string
	Audience          string
	AuthorizedParties []string
	Leeway            time.Duration

	Provider string
	Model    string
	Upstream string
	APIKey   string
}

type serveCommander struct {
	flags struct {
		listen            string
		allowedOrigins    []string
		jwksURL           string
		issuer            string
		audience          string
		authorizedParties []string
		leeway            string
		provider          string
		model             string
		upstream          string
	}

	debug   bool
	logFile string
	viper   *viper.Viper
	logger  *slog.Logger
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagAllowedOrigins,
	config.FlagJWKSURL,
	config.FlagIssuer,
	config.FlagAudience,
	config.FlagAuthorizedParties,
	config.FlagLeeway,
	config.FlagProvider,
	config.FlagModel,
	config.FlagUpstream,
}

const serveLongDesc string = `Run the scribe API server.

Every request to /api must carry a bearer JWT that verifies against the
configured JWKS. GET /api streams a business idea; POST /api takes a visit
as JSON and streams a summary of it. Output is relayed as server-sent events.

Flags override environment variables (SCRIBE_*), which override config.toml.

Examples:
  scribe serve --jwks-url https://auth.example.com/.well-known/jwks.json
  scribe serve --provider openai --model gpt-4o-mini
  scribe serve --provider ollama --upstream http://localhost:11434 --model llama3.2`

const serveShortDesc string = "Run the scribe API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			opts, err := OptionsFromViper(cmder.viper)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), opts)
		},
	}

	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &cmder.flags.listen)
	config.AddStringSliceFlag(cmd, config.ServeFlags, config.FlagAllowedOrigins, &cmder.flags.allowedOrigins)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagJWKSURL, &cmder.flags.jwksURL)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagIssuer, &cmder.flags.issuer)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagAudience, &cmder.flags.audience)
	config.AddStringSliceFlag(cmd, config.ServeFlags, config.FlagAuthorizedParties, &cmder.flags.authorizedParties)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLeeway, &cmder.flags.leeway)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagProvider, &cmder.flags.provider)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagModel, &cmder.flags.model)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagUpstream, &cmder.flags.upstream)
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

// OptionsFromViper reads the layered configuration once into Options.
func OptionsFromViper(v *viper.Viper) (Options, error) {
	leeway, err := time.ParseDuration(v.GetString("auth.leeway"))
	if err != nil {
		return Options{}, fmt.Errorf("invalid auth.leeway: %w", err)
	}

	opts := Options{
		Listen:            v.GetString("server.listen"),
		AllowedOrigins:    config.StringList(v, "server.allowed_origins"),
		JWKSURL:           v.GetString("auth.jwks_url"),
		Issuer:            v.GetString("auth.issuer"),
		Audience:          v.GetString("auth.audience"),
		AuthorizedParties: config.StringList(v, "auth.authorized_parties"),
		Leeway:            leeway,
		Provider:          v.GetString("model.provider"),
		Model:             v.GetString("model.name"),
		Upstream:          v.GetString("model.upstream"),
		APIKey:            v.GetString("model.api_key"),
	}

	if opts.JWKSURL == "" {
		return Options{}, ErrMissingJWKSURL
	}

	if opts.APIKey == "" {
		opts.APIKey = vendorAPIKey(opts.Provider)
	}

	return opts, nil
}

// vendorAPIKey reads the first vendor key variable set for providerType.
// Only the selected provider's variables are consulted, so one vendor's key
// is never sent to another.
func vendorAPIKey(providerType string) string {
	for _, name := range provider.APIKeyEnv(providerType) {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}

func (c *serveCommander) run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log, closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	c.logger = log

	var verifier *auth.CachingVerifier
	err = cliui.Step(os.Stderr, "Loading signing keys", func() error {
		verifier, err = NewVerifier(ctx, opts)
		return err
	})
	if err != nil {
		return err
	}
	defer verifier.Close()

	var generator llm.Generator
	err = cliui.Step(os.Stderr, "Connecting to "+opts.Provider, func() error {
		generator, err = NewGenerator(ctx, opts)
		return err
	})
	if err != nil {
		return err
	}

	s, err := server.New(server.Config{
		ListenAddr:     opts.Listen,
		AllowedOrigins: opts.AllowedOrigins,
	}, verifier, generator, c.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	c.logger.Debug("verifying bearer tokens",
		"jwks_url", opts.JWKSURL,
		"issuer", opts.Issuer,
		"audience", opts.Audience,
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		// Restore default handling so a second signal kills the process.
		signal.Stop(sigChan)
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return s.Close()
	}
}

// newLogger builds the console logger and, with --log-file, a JSON file
// logger fanned out alongside it. Under --debug the file records carry the
// caller's source location.
func (c *serveCommander) newLogger() (*slog.Logger, func(), error) {
	console := logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))
	if c.logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(c.debug),
		logger.WithSource(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)
	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}

// NewVerifier builds the JWKS backed verifier wrapped in a result cache.
// The key set refreshes until ctx is done.
func NewVerifier(ctx context.Context, opts Options) (*auth.CachingVerifier, error) {
	jwks, err := auth.NewJWKSVerifier(ctx, opts.JWKSURL, auth.JWTConfig{
		Issuer:            opts.Issuer,
		Audience:          opts.Audience,
		AuthorizedParties: opts.AuthorizedParties,
		Leeway:            opts.Leeway,
	})
	if err != nil {
		return nil, err
	}

	cached, err := auth.NewCachingVerifier(jwks, auth.DefaultCacheTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token cache: %w", err)
	}
	return cached, nil
}

// NewGenerator opens the configured model provider.
func NewGenerator(ctx context.Context, opts Options) (llm.Generator, error) {
	gen, err := provider.New(ctx, provider.Config{
		Provider: opts.Provider,
		Model:    opts.Model,
		BaseURL:  opts.Upstream,
		APIKey:   opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s generator: %w", opts.Provider, err)
	}
	return gen, nil
}
