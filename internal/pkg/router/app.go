package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// webhook payloads are small JSON documents
const bodyLimit = 1 << 20

// NewApplication builds the fiber app with all routes installed.
func NewApplication(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "CalSync",
		BodyLimit: bodyLimit,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	InstallRouter(app, deps)
	return app
}
