package controllers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

// MappingController lets operators inspect and repair the identity
// mapping between provider users and internal users, and their calendar
// routing.
type MappingController struct {
	mappings    repository.MappingRepository
	credentials repository.CredentialRepository
	preferences repository.PreferenceRepository
}

func NewMappingController(repos *repository.Repositories) *MappingController {
	return &MappingController{
		mappings:    repos.Mapping,
		credentials: repos.Credential,
		preferences: repos.Preference,
	}
}

// HandleGetMapping looks a mapping up from either side.
func (mc *MappingController) HandleGetMapping(c *fiber.Ctx) error {
	p, err := parseProvider(c.Query("provider"))
	if err != nil || !p.IsSource() {
		return badRequest(c, "Unknown source provider")
	}
	ctx := c.UserContext()

	if userID := c.Query("userId"); userID != "" {
		record, err := mc.lookupCredential(ctx, p, userID)
		if err != nil {
			return errorResponse(c, err)
		}
		resp := fiber.Map{
			"provider":       p,
			"userId":         userID,
			"providerUserId": nil,
			"hasTokens":      record != nil,
			"tokenCreated":   nil,
		}
		if record != nil {
			if record.ProviderUserID != "" {
				resp["providerUserId"] = record.ProviderUserID
			}
			resp["tokenCreated"] = record.CreatedAt
		}
		return c.JSON(resp)
	}

	if providerUserID := c.Query("providerUserId"); providerUserID != "" {
		userID, err := mc.mappings.GetInternalID(ctx, p, providerUserID)
		if err != nil {
			var missing *apperror.MappingNotFoundError
			if errors.As(err, &missing) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"providerUserId": providerUserID,
					"error":          "No user mapping found",
				})
			}
			return errorResponse(c, err)
		}

		source, err := mc.lookupCredential(ctx, p, userID)
		if err != nil {
			return errorResponse(c, err)
		}
		google, err := mc.lookupCredential(ctx, models.ProviderGoogle, userID)
		if err != nil {
			return errorResponse(c, err)
		}
		resp := fiber.Map{
			"provider":        p,
			"providerUserId":  providerUserID,
			"userId":          userID,
			"hasSourceTokens": source != nil,
			"hasGoogleTokens": google != nil,
			"tokenCreated":    nil,
		}
		if source != nil {
			resp["tokenCreated"] = source.CreatedAt
		}
		return c.JSON(resp)
	}

	return badRequest(c, "Provide either userId or providerUserId parameter")
}

type mappingRequest struct {
	Provider       string `json:"provider"`
	UserID         string `json:"userId" validate:"required"`
	ProviderUserID string `json:"providerUserId" validate:"required"`
	Action         string `json:"action" validate:"required,oneof=create delete"`
}

// HandleUpdateMapping creates or deletes one mapping.
func (mc *MappingController) HandleUpdateMapping(c *fiber.Ctx) error {
	var req mappingRequest
	if err := parseJSON(c, &req); err != nil {
		return errorResponse(c, err)
	}
	p, err := parseProvider(req.Provider)
	if err != nil || !p.IsSource() {
		return badRequest(c, "Unknown source provider")
	}
	ctx := c.UserContext()

	if req.Action == "delete" {
		if err := mc.mappings.Delete(ctx, p, req.ProviderUserID); err != nil {
			return errorResponse(c, err)
		}
		log.Infof("[Mapping] deleted %s mapping for %s", p, req.ProviderUserID)
		return c.JSON(fiber.Map{"success": true, "message": "Mapping deleted", "providerUserId": req.ProviderUserID})
	}

	if err := mc.mappings.Put(ctx, p, req.ProviderUserID, req.UserID); err != nil {
		return errorResponse(c, err)
	}

	// Keep the provider user id on the credential record in sync.
	record, err := mc.lookupCredential(ctx, p, req.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	if record != nil && record.ProviderUserID != req.ProviderUserID {
		record.ProviderUserID = req.ProviderUserID
		if err := mc.credentials.Put(ctx, p, req.UserID, record); err != nil {
			return errorResponse(c, err)
		}
	}

	log.Infof("[Mapping] %s user %s mapped to %s", p, req.ProviderUserID, req.UserID)
	return c.JSON(fiber.Map{
		"success":        true,
		"message":        "Mapping created",
		"userId":         req.UserID,
		"providerUserId": req.ProviderUserID,
	})
}

// HandleGetPreferences returns the calendar routing of a user.
func (mc *MappingController) HandleGetPreferences(c *fiber.Ctx) error {
	userID := c.Query("userId")
	if userID == "" {
		return badRequest(c, "Missing userId parameter")
	}
	prefs, err := mc.preferences.Get(c.UserContext(), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	if prefs == nil {
		prefs = models.CalendarPreference{}
	}
	return c.JSON(fiber.Map{"userId": userID, "preferences": prefs})
}

type preferencesRequest struct {
	UserID      string                    `json:"userId" validate:"required"`
	Preferences models.CalendarPreference `json:"preferences" validate:"required,min=1,dive,keys,required,endkeys,required"`
}

// HandleUpdatePreferences replaces the calendar routing of a user.
func (mc *MappingController) HandleUpdatePreferences(c *fiber.Ctx) error {
	var req preferencesRequest
	if err := parseJSON(c, &req); err != nil {
		return errorResponse(c, err)
	}
	if err := mc.preferences.Put(c.UserContext(), req.UserID, req.Preferences); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "preferences": req.Preferences})
}

// lookupCredential returns nil without error when no record exists.
func (mc *MappingController) lookupCredential(ctx context.Context, p models.Provider, userID string) (*models.CredentialRecord, error) {
	record, err := mc.credentials.Get(ctx, p, userID)
	if err != nil {
		var missing *apperror.CredentialMissingError
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}
