package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sifan077/ShortURL/config"
	"github.com/sifan077/ShortURL/internal/http/handler"
	"github.com/sifan077/ShortURL/internal/http/middleware"
	"github.com/sifan077/ShortURL/internal/infra/postgres"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Dependencies bundles everything the HTTP server needs. Postgres and Redis
// are optional and only used for readiness and rate limiting.
type Dependencies struct {
	Logger    *zap.Logger
	Config    config.HTTPConfig
	RateLimit config.RateLimitConfig
	Shortener handler.Shortener
	Postgres  *pgxpool.Pool
	Redis     redis.UniversalClient
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "ShortURL",
		DisableStartupMessage: true,
		ReadTimeout:           deps.Config.ReadTimeout,
		WriteTimeout:          deps.Config.WriteTimeout,
		IdleTimeout:           deps.Config.IdleTimeout,
	})

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// App exposes the underlying fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())

	if s.deps.RateLimit.Enabled && s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.RateLimitConfig{
			MaxRequests: s.deps.RateLimit.MaxRequests,
			Window:      s.deps.RateLimit.Window,
		}, s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	handler.NewHealthHandler(handler.HealthDeps{
		Logger: s.deps.Logger,
		Checks: s.readinessChecks(),
	}).Register(s.app)

	handler.NewShortenHandler(handler.ShortenDeps{
		Logger:    s.deps.Logger,
		Shortener: s.deps.Shortener,
	}).Register(s.app)

	// Catch-all single segment, keep last.
	handler.NewRedirectHandler(handler.RedirectDeps{
		Logger:    s.deps.Logger,
		Shortener: s.deps.Shortener,
	}).Register(s.app)
}

func (s *Server) readinessChecks() map[string]handler.Check {
	checks := make(map[string]handler.Check)
	if s.deps.Postgres != nil {
		pool := s.deps.Postgres
		checks["postgres"] = func(ctx context.Context) error {
			return postgres.Ping(ctx, pool, readinessTimeout)
		}
	}
	if s.deps.Redis != nil {
		rdb := s.deps.Redis
		checks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return checks
}
