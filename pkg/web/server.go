// Package web serves the HTTP and websocket surface of a voice chat session.
package web

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-voicechat/pkg/hub"
	"github.com/teslashibe/go-voicechat/pkg/observability"
	"github.com/teslashibe/go-voicechat/pkg/pipeline"
)

// Server is the web UI server
type Server struct {
	app     *fiber.App
	addr    string
	static  string
	orch    *pipeline.Orchestrator
	events  *hub.Hub
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStatic serves files from dir at /.
func WithStatic(dir string) Option {
	return func(s *Server) { s.static = dir }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server for orch listening on addr.
func NewServer(addr string, orch *pipeline.Orchestrator, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		orch:   orch,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "web")
	s.events = hub.New(s.logger)

	orch.OnEvent(func(e pipeline.Event) {
		if err := s.events.BroadcastJSON(e); err != nil {
			s.logger.Warn("encode event", "type", e.Type, "error", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "voicechat",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/conversation", s.handleConversation)
	api.Post("/messages", s.handleMessage)
	api.Post("/record", s.handleRecord)
	api.Post("/reset", s.handleReset)
	api.Get("/voices", s.handleVoices)
	api.Put("/voice", s.handleSelectVoice)
	api.Put("/provider", s.handleSelectProvider)
	api.Put("/credentials/:provider", s.handleCredential)
	api.Get("/turns/:id/audio", s.handleTurnAudio)

	if s.metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	}

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	if s.static != "" {
		app.Static("/", s.static)
	}

	s.app = app
	return s
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the event hub.
func (s *Server) Hub() *hub.Hub {
	return s.events
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.events.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
