package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORS allows any origin to call the API. Preflight requests are answered
// here without reaching the routes.
func CORS() fiber.Handler {
	allowMethods := strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ", ")
	allowHeaders := strings.Join([]string{
		fiber.HeaderOrigin,
		fiber.HeaderContentType,
		fiber.HeaderAccept,
		fiber.HeaderXRequestedWith,
		RequestIDHeader,
	}, ", ")

	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
		c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, Location, "+RequestIDHeader)
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
