package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

type mappingRepository struct {
	store kv.Store
}

// NewMappingRepository creates a new identity mapping repository instance
func NewMappingRepository(store kv.Store) MappingRepository {
	return &mappingRepository{store: store}
}

// GetInternalID returns apperror.MappingNotFoundError when the provider user
// was never linked.
func (r *mappingRepository) GetInternalID(ctx context.Context, p models.Provider, providerUserID string) (string, error) {
	data, err := r.store.Get(ctx, mappingKey(p, providerUserID))
	if errors.Is(err, kv.ErrNotFound) {
		return "", &apperror.MappingNotFoundError{Provider: string(p), ProviderUserID: providerUserID}
	}
	if err != nil {
		return "", fmt.Errorf("load %s user mapping: %w", p, err)
	}
	id := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if id == "" {
		return "", &apperror.MappingNotFoundError{Provider: string(p), ProviderUserID: providerUserID}
	}
	return id, nil
}

func (r *mappingRepository) Put(ctx context.Context, p models.Provider, providerUserID, internalUserID string) error {
	if providerUserID == "" || internalUserID == "" {
		return &apperror.ValidationError{Message: "provider user id and internal user id are required"}
	}
	return r.store.Set(ctx, mappingKey(p, providerUserID), []byte(internalUserID), 0)
}

func (r *mappingRepository) Delete(ctx context.Context, p models.Provider, providerUserID string) error {
	return r.store.Delete(ctx, mappingKey(p, providerUserID))
}
