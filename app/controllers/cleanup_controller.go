package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
)

// Sweeper runs one reconciliation pass over the event store.
type Sweeper interface {
	Sweep(ctx context.Context) (*models.SweepResult, error)
}

type CleanupController struct {
	sweeper Sweeper
}

func NewCleanupController(sweeper Sweeper) *CleanupController {
	return &CleanupController{sweeper: sweeper}
}

// HandleCleanup is called by an external scheduler.
func (cc *CleanupController) HandleCleanup(c *fiber.Ctx) error {
	results, err := cc.sweeper.Sweep(c.UserContext())
	if err != nil {
		log.Errorf("[Cleanup] sweep failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal server error",
			"message": err.Error(),
			"results": results,
		})
	}
	return c.JSON(fiber.Map{"success": true, "results": results})
}
