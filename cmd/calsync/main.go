package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/internal/pkg/bootstrap"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
	"github.com/ManuelReschke/CalSync/internal/pkg/env"
	"github.com/ManuelReschke/CalSync/internal/pkg/router"
	"github.com/ManuelReschke/CalSync/internal/pkg/sweeper"
)

func main() {
	if !env.SetupEnvFile() {
		log.Info("[CalSync] no .env file found, using process environment")
	}
	if env.IsDev() {
		log.SetLevel(log.LevelDebug)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[CalSync] invalid configuration: %v", err)
	}

	svc, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("[CalSync] %v", err)
	}

	app := NewApplication(svc)

	manager := sweeper.NewManager(svc.Sweeper, cfg.SweepInterval)
	manager.Start()

	go func() {
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Fatalf("[CalSync] server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("[CalSync] shutting down")
	manager.Stop()
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Errorf("[CalSync] shutdown: %v", err)
	}
	if err := svc.Close(); err != nil {
		log.Errorf("[CalSync] closing store: %v", err)
	}
}

func NewApplication(svc *bootstrap.Services) *fiber.App {
	// Define possible base paths
	basePaths := []string{
		"./",     // Current directory
		"../../", // From cmd/calsync to project root
	}

	swaggerFile := ""
	for _, path := range basePaths {
		candidate := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(candidate); err == nil {
			swaggerFile = candidate
			break
		}
	}

	return router.NewApplication(router.Dependencies{
		Config:      svc.Config,
		Store:       svc.Store,
		Repos:       svc.Repos,
		Receiver:    svc.Receiver,
		Processor:   svc.Processor,
		Sweeper:     svc.Sweeper,
		Tokens:      svc.Credentials,
		SwaggerFile: swaggerFile,
	})
}
