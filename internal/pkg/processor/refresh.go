package processor

import (
	"context"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

// CredentialService is the part of credentials.Service the processor needs.
type CredentialService interface {
	Get(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error)
	Refresh(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error)
}

// withRefresh runs call with the stored access token. On a 401 it refreshes
// the credential exactly once and repeats call once. A second 401 means the
// user has to reconnect the provider.
func withRefresh[T any](ctx context.Context, creds CredentialService, p models.Provider, internalUserID string, record *models.CredentialRecord, call func(accessToken string) (T, error)) (T, error) {
	var zero T

	v, err := call(record.AccessToken)
	if !apperror.IsUnauthorized(err) {
		return v, err
	}

	log.Infof("[Processor] %s access token rejected for user %s, refreshing", p, internalUserID)
	refreshed, err := creds.Refresh(ctx, p, internalUserID)
	if err != nil {
		return zero, err
	}

	v, err = call(refreshed.AccessToken)
	if apperror.IsUnauthorized(err) {
		return zero, &apperror.ReauthorizationRequiredError{Provider: string(p), Cause: err}
	}
	return v, err
}
