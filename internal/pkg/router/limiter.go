package router

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/CalSync/internal/pkg/config"
)

// newWebhookLimiter limits deliveries per client IP. With the redis store
// driver the counters live in redis so that all replicas share them.
func newWebhookLimiter(cfg *config.Config) fiber.Handler {
	limiterCfg := limiter.Config{
		Max:        cfg.WebhookRateMax,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		},
	}
	if cfg.WebhookRateMax <= 0 {
		limiterCfg.Next = func(*fiber.Ctx) bool { return true }
	}

	if cfg.StoreDriver == config.StoreRedis {
		port, err := strconv.Atoi(cfg.RedisPort)
		if err != nil {
			port = 6379
		}
		limiterCfg.Storage = redis.New(redis.Config{
			Host:     cfg.RedisHost,
			Port:     port,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDB,
			Reset:    false,
		})
		log.Infof("[Router] webhook limiter backed by redis %s:%d", cfg.RedisHost, port)
	}

	return limiter.New(limiterCfg)
}
