package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CalSync/app/controllers"
	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
	"github.com/ManuelReschke/CalSync/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Dependencies
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	cfg := h.deps.Config

	app.Get("/healthz", controllers.HandleHealth(h.deps.Store))

	api := app.Group("/api")

	// Provider webhooks. Public, so rate limited.
	webhooks := controllers.NewWebhookController(h.deps.Receiver)
	limit := newWebhookLimiter(cfg)
	for _, p := range models.SourceProviders {
		path := "/" + string(p) + "-webhook"
		api.Get(path, limit, webhooks.HandleVerify(p))
		api.Post(path, limit, webhooks.HandleReceive(p))
	}

	// Internal trigger used by the dispatcher.
	process := controllers.NewProcessController(h.deps.Processor)
	app.Post(dispatch.ProcessPath, middleware.RequireBearer(middleware.BearerConfig{
		Name:     "trigger",
		Secret:   cfg.TriggerSecret,
		Optional: true,
	}), process.HandleProcess)

	cleanup := controllers.NewCleanupController(h.deps.Sweeper)
	api.Post("/cleanup-webhook-events", middleware.RequireBearer(middleware.BearerConfig{
		Name:   "cleanup",
		Secret: cfg.CleanupSecret,
	}), cleanup.HandleCleanup)

	admin := middleware.RequireBearer(middleware.BearerConfig{Name: "admin", Secret: cfg.AdminSecret})

	tokens := controllers.NewTokenController(h.deps.Tokens)
	for _, p := range []models.Provider{models.ProviderOura, models.ProviderStrava, models.ProviderGoogle} {
		api.Post("/refresh-"+string(p)+"-token", admin, tokens.HandleRefresh(p))
	}

	mapping := controllers.NewMappingController(h.deps.Repos)
	api.Get("/user-mapping", admin, mapping.HandleGetMapping)
	api.Post("/user-mapping", admin, mapping.HandleUpdateMapping)
	api.Get("/calendar-prefs", admin, mapping.HandleGetPreferences)
	api.Post("/calendar-prefs", admin, mapping.HandleUpdatePreferences)
}
