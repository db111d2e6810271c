package handler

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/sifan077/ShortURL/internal/app/model"
)

// Shortener is the service the transport layer talks to.
type Shortener interface {
	CreateShortURL(ctx context.Context, longURL, scheme, host string) model.CreateShortURLResult
	HandleShortURLRequest(ctx context.Context, code string, headers http.Header) *model.RedirectResponse
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

// requestHeaders copies the fasthttp request headers into an http.Header
// with canonical keys.
func requestHeaders(c *fiber.Ctx) http.Header {
	raw := c.GetReqHeaders()
	headers := make(http.Header, len(raw))
	for key, values := range raw {
		for _, v := range values {
			headers.Add(key, v)
		}
	}
	return headers
}
