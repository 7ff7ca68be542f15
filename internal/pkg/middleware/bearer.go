package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// BearerConfig configures RequireBearer.
type BearerConfig struct {
	// Name appears in log lines only.
	Name   string
	Secret string
	// Optional lets every request through while no secret is configured.
	// Without it an unconfigured secret rejects everything.
	Optional bool
}

// RequireBearer guards internal endpoints with a shared secret carried as
// "Authorization: Bearer <secret>".
func RequireBearer(cfg BearerConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.Secret == "" {
			if cfg.Optional {
				return c.Next()
			}
			log.Errorf("[Middleware] %s secret not configured, rejecting %s", cfg.Name, c.Path())
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "not_configured", "message": "Endpoint is not configured"})
		}

		token := extractBearer(c)
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing bearer token"})
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Secret)) != 1 {
			log.Warnf("[Middleware] invalid %s secret from %s", cfg.Name, c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid bearer token"})
		}
		return c.Next()
	}
}

func extractBearer(c *fiber.Ctx) string {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
