package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/pesocoin/colorgame/internal/config"
	"github.com/pesocoin/colorgame/internal/respond"
	"github.com/pesocoin/colorgame/internal/routes"
)

// Server wraps the Fiber application and the wired game services.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	logger   *slog.Logger
	services *routes.Services
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, nc *nats.Conn, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: respond.ErrorHandler(logger),
	})

	services, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, NATS: nc, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, logger: logger, services: services}, nil
}

// App exposes the Fiber app for in-process tests.
func (s *Server) App() *fiber.App { return s.app }

// Services exposes the wired domain services.
func (s *Server) Services() *routes.Services { return s.services }

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown stops accepting requests and then closes any open round so its
// countdown goroutine exits. Wagers stay in the book for the next process.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return err
	}
	if s.services.Round.State().Open {
		if _, err := s.services.Round.Close(ctx); err != nil {
			s.logger.Warn("close round on shutdown", slog.Any("error", err))
		}
	}
	return nil
}
