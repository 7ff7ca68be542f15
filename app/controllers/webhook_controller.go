package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/webhook"
)

// WebhookController exposes the inbound provider webhooks.
type WebhookController struct {
	receiver *webhook.Receiver
}

func NewWebhookController(receiver *webhook.Receiver) *WebhookController {
	return &WebhookController{receiver: receiver}
}

// HandleVerify answers the subscription handshake of provider p.
func (wc *WebhookController) HandleVerify(p models.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		src, ok := wc.receiver.Source(p)
		if !ok {
			return c.SendStatus(fiber.StatusNotFound)
		}
		tokenParam, challengeParam := src.VerificationParams()

		body, err := wc.receiver.Verify(p, c.Query(tokenParam), c.Query(challengeParam))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid verification token"})
		}
		return c.JSON(body)
	}
}

// HandleReceive stores a delivery. Once stored the provider always gets a
// success answer, whatever happens downstream.
func (wc *WebhookController) HandleReceive(p models.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		receipt, err := wc.receiver.Receive(c.UserContext(), p, c.Body())
		if err != nil {
			var invalid *apperror.ValidationError
			if errors.As(err, &invalid) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid webhook event"})
			}
			log.Errorf("[Webhook] failed to store %s webhook: %v", p, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		}

		if receipt.Duplicate {
			return c.Status(fiber.StatusOK).SendString("Duplicate ignored")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
