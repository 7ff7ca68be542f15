package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

// TokenRefresher renews a stored access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error)
}

type TokenController struct {
	refresher TokenRefresher
}

func NewTokenController(refresher TokenRefresher) *TokenController {
	return &TokenController{refresher: refresher}
}

type refreshRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// HandleRefresh renews the access token of provider p for one user.
func (tc *TokenController) HandleRefresh(p models.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req refreshRequest
		if err := parseJSON(c, &req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing userId parameter"})
		}

		record, err := tc.refresher.Refresh(c.UserContext(), p, req.UserID)
		if err != nil {
			if apperror.IsReauthorizationRequired(err) {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error":           "Refresh token expired or invalid",
					"reauth_required": true,
				})
			}
			log.Errorf("[Tokens] %s token refresh failed for %s: %v", p, req.UserID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
		}

		return c.JSON(fiber.Map{
			"success":      true,
			"access_token": record.AccessToken,
			"expires_in":   record.ExpiresIn,
		})
	}
}
