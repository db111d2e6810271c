package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ShortenDeps groups dependencies required by the shorten handler.
type ShortenDeps struct {
	Logger    *zap.Logger
	Shortener Shortener
}

// ShortenHandler implements POST /shorten.
type ShortenHandler struct {
	logger    *zap.Logger
	shortener Shortener
}

// NewShortenHandler creates a shorten handler with the provided dependencies.
func NewShortenHandler(deps ShortenDeps) *ShortenHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShortenHandler{
		logger:    logger,
		shortener: deps.Shortener,
	}
}

// Register wires the shorten route onto the provided router.
func (h *ShortenHandler) Register(router fiber.Router) {
	router.Post("/shorten", h.Shorten)
}

// ShortenRequest is the body of POST /shorten.
type ShortenRequest struct {
	LongURL string `json:"longUrl"`
}

// Shorten answers with the short url as plain text, or 400 and the reason.
func (h *ShortenHandler) Shorten(c *fiber.Ctx) error {
	if len(c.Body()) == 0 {
		return c.Status(fiber.StatusBadRequest).SendString("request body is empty")
	}

	var req ShortenRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("invalid shorten request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString("invalid request body")
	}

	result := h.shortener.CreateShortURL(requestContext(c), strings.TrimSpace(req.LongURL), c.Protocol(), c.Hostname())
	if !result.Success {
		return c.Status(fiber.StatusBadRequest).SendString(result.Message)
	}

	return c.Status(fiber.StatusOK).SendString(result.ShortURL)
}
