package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortURL/internal/app/model"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by redirect handlers.
type RedirectDeps struct {
	Logger    *zap.Logger
	Shortener Shortener
}

// RedirectHandler resolves short codes.
type RedirectHandler struct {
	logger    *zap.Logger
	shortener Shortener
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:    logger,
		shortener: deps.Shortener,
	}
}

// Register wires redirect routes onto the provided router. It must be
// registered last since /:code matches any single segment.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/:code", h.Resolve)
}

// Resolve handles GET /:code. Scripts get the long url as JSON, browsers a
// 302 to it.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")

	resp := h.shortener.HandleShortURLRequest(requestContext(c), code, requestHeaders(c))
	if resp == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "short url not found",
		})
	}

	if resp.WantsJSON {
		return c.JSON(model.ReadShortURL{LongURL: resp.LongURL})
	}

	h.logger.Debug("redirecting short url", zap.String("code", code), zap.String("target", resp.LongURL))
	return c.Redirect(resp.LongURL, fiber.StatusFound)
}
