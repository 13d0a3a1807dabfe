package api

import (
	"log/slog"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/relay/pkg/logger"
	"github.com/papercomputeco/relay/pkg/storage"
)

const shutdownTimeout = 5 * time.Second

// Server is the API server for querying recorded sessions
type Server struct {
	config Config
	driver storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The storage driver is injected to allow sharing with the relay server.
func NewServer(config Config, driver storage.Driver, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	s := &Server{
		config: config,
		driver: driver,
		logger: log,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/v1/sessions", s.handleListSessions)
	app.Get("/v1/sessions/stats", s.handleSessionStats)
	app.Get("/v1/sessions/:id", s.handleGetSession)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Shutdown stops accepting requests and waits briefly for in-flight ones.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(shutdownTimeout)
}
