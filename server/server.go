package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/papercomputeco/scribe/pkg/auth"
	"github.com/papercomputeco/scribe/pkg/llm"
	"github.com/papercomputeco/scribe/server/header"
)

// Routes served by Server.
const (
	RouteAPI     = "/api"
	RouteHealth  = "/api/health"
	RouteMetrics = "/metrics"
)

// Server authenticates callers, builds prompts and relays model output as
// server-sent events.
type Server struct {
	config    Config
	verifier  auth.Verifier
	generator llm.Generator
	logger    *slog.Logger
	validate  *validator.Validate
	metrics   *metrics
	app       *fiber.App

	// ctx is the parent of every relay. Close cancels it so open streams
	// end before the listener drains.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// New creates a new Server. The verifier and generator are injected so the
// same server can run against any identity or model provider.
func New(config Config, verifier auth.Verifier, generator llm.Generator, logger *slog.Logger) (*Server, error) {
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		ctx:       ctx,
		cancel:    cancel,
		config:    config,
		verifier:  verifier,
		generator: generator,
		logger:    logger,
		validate:  newValidator(),
		metrics:   newMetrics(),
		app:       app,
	}

	origins := "*"
	if len(config.AllowedOrigins) > 0 {
		origins = strings.Join(config.AllowedOrigins, ",")
	}

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New(requestid.Config{
		Header:    header.RequestID,
		Generator: uuid.NewString,
	}))
	app.Use(s.logRequests)
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowMethods:  "GET,POST,OPTIONS",
		AllowHeaders:  "Authorization,Content-Type," + header.RequestID,
		ExposeHeaders: header.RequestID,
	}))

	app.Get(RouteHealth, s.handleHealth)
	app.Get(RouteMetrics, s.metricsHandler())

	app.Get(RouteAPI, s.authenticate, s.handleIdea)
	app.Post(RouteAPI, s.authenticate, s.handleVisit)

	return s, nil
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting scribe server",
		"listen", s.config.ListenAddr,
		"provider", s.generator.Name(),
		"model", s.generator.Model(),
	)

	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting scribe server",
		"listen", listener.Addr().String(),
		"provider", s.generator.Name(),
		"model", s.generator.Model(),
	)

	return s.app.Listener(listener)
}

// Close ends every open stream with a terminal error event, then shuts the
// server down. Connections still open after the shutdown timeout are
// abandoned. Close is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.closeErr = s.app.ShutdownWithTimeout(s.config.shutdownTimeout())
	})
	return s.closeErr
}
