package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

type credentialRepository struct {
	store kv.Store
}

// NewCredentialRepository creates a new credential repository instance
func NewCredentialRepository(store kv.Store) CredentialRepository {
	return &credentialRepository{store: store}
}

// Get returns apperror.CredentialMissingError when no record exists.
func (r *credentialRepository) Get(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error) {
	data, err := r.store.Get(ctx, credentialKey(p, internalUserID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, &apperror.CredentialMissingError{Provider: string(p), InternalUserID: internalUserID}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s credentials: %w", p, err)
	}

	var record models.CredentialRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode %s credentials: %w", p, err)
	}
	return &record, nil
}

func (r *credentialRepository) Put(ctx context.Context, p models.Provider, internalUserID string, record *models.CredentialRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode %s credentials: %w", p, err)
	}
	return r.store.Set(ctx, credentialKey(p, internalUserID), data, 0)
}
