package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CalSync/app/controllers"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
	"github.com/ManuelReschke/CalSync/internal/pkg/webhook"
)

// Router installs a group of routes.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries everything the handlers need.
type Dependencies struct {
	Config    *config.Config
	Store     kv.Store
	Repos     *repository.Repositories
	Receiver  *webhook.Receiver
	Processor dispatch.EventProcessor
	Sweeper   controllers.Sweeper
	Tokens    controllers.TokenRefresher
	// SwaggerFile is the OpenAPI document served under /docs/api. Empty
	// disables the docs.
	SwaggerFile string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	setup(app, NewDocsRouter(deps.SwaggerFile), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
