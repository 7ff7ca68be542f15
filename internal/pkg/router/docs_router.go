package router

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// DocsRouter serves the OpenAPI document of the internal API.
type DocsRouter struct {
	file string
}

func NewDocsRouter(file string) *DocsRouter {
	return &DocsRouter{file: file}
}

func (h DocsRouter) InstallRouter(app *fiber.App) {
	if h.file == "" {
		return
	}
	if _, err := os.Stat(h.file); err != nil {
		log.Warnf("[Router] openapi document %s not found, docs disabled", h.file)
		return
	}

	// SWAGGER / OPENAPI
	app.Use(swagger.New(swagger.Config{
		BasePath: "/docs/api/",
		FilePath: h.file,
		Path:     "v1",
	}))
}
