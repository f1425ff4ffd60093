package middleware

import (
	"crypto/subtle"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// APIKeyMiddleware guards the HTTP API with a shared key sent in the
// X-API-Key header (or as a bearer token). An empty key disables the check.
func APIKeyMiddleware(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Next()
		}

		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			apiKey = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key. Include X-API-Key header.",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			log.Printf("❌ [APIKEY-AUTH] Invalid key attempt from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		}

		c.Locals("auth_type", "api_key")
		return c.Next()
	}
}
