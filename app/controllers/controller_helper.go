package controllers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// errorResponse writes the JSON error body for err with the status derived
// from its type.
func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(apperror.HTTPStatus(err)).JSON(fiber.Map{
		"error":   apperror.Code(err),
		"message": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_request", "message": message})
}

// parseJSON decodes and validates a request body.
func parseJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return &apperror.ValidationError{Message: "Invalid JSON body"}
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return &apperror.ValidationError{Message: "Missing or invalid " + lowerFirst(verrs[0].Field())}
		}
		return &apperror.ValidationError{Message: err.Error()}
	}
	return nil
}

// parseProvider reads an optional provider discriminator; empty means oura.
func parseProvider(raw string) (models.Provider, error) {
	p, ok := models.ParseProvider(raw)
	if !ok {
		return "", &apperror.ValidationError{Message: "Unknown provider " + raw}
	}
	return p, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
