package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultCheckTimeout = 2 * time.Second

// Check probes one backing dependency.
type Check func(ctx context.Context) error

// HealthDeps groups dependencies required by the health handler.
type HealthDeps struct {
	Logger  *zap.Logger
	Checks  map[string]Check
	Timeout time.Duration
}

// HealthHandler reports liveness and the readiness of each dependency.
type HealthHandler struct {
	logger  *zap.Logger
	checks  map[string]Check
	timeout time.Duration
	now     func() time.Time
}

// NewHealthHandler creates a health handler with the provided dependencies.
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	return &HealthHandler{
		logger:  logger,
		checks:  deps.Checks,
		timeout: timeout,
		now:     time.Now,
	}
}

// Register wires health routes onto the provided router.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health answers 200 when every check passes and 503 otherwise.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(requestContext(c), h.timeout)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	deps := make(fiber.Map, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "down"
			status = "degraded"
			code = fiber.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	return c.Status(code).JSON(fiber.Map{
		"service":      "ShortURL",
		"status":       status,
		"dependencies": deps,
		"time":         h.now().UTC().Format(time.RFC3339),
	})
}
