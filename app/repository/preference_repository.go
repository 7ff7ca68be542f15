package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

type preferenceRepository struct {
	store kv.Store
}

// NewPreferenceRepository creates a new calendar preference repository instance
func NewPreferenceRepository(store kv.Store) PreferenceRepository {
	return &preferenceRepository{store: store}
}

// Get returns an empty preference set when the user never configured one.
func (r *preferenceRepository) Get(ctx context.Context, internalUserID string) (models.CalendarPreference, error) {
	data, err := r.store.Get(ctx, preferenceKey(internalUserID))
	if errors.Is(err, kv.ErrNotFound) {
		return models.CalendarPreference{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load calendar preferences: %w", err)
	}

	prefs := models.CalendarPreference{}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("decode calendar preferences: %w", err)
	}
	return prefs, nil
}

func (r *preferenceRepository) Put(ctx context.Context, internalUserID string, prefs models.CalendarPreference) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, preferenceKey(internalUserID), data, 0)
}
