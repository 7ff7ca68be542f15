package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

// EventRepository persists webhook events with their processing state.
type EventRepository interface {
	Create(ctx context.Context, event *models.WebhookEvent, ttl time.Duration) error
	// CreateIfAbsent stores the event only when its key is free.
	CreateIfAbsent(ctx context.Context, event *models.WebhookEvent, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (*models.WebhookEvent, error)
	Exists(ctx context.Context, key string) (bool, error)
	// Save writes the event back and keeps the remaining TTL.
	Save(ctx context.Context, event *models.WebhookEvent) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	KeysByProvider(ctx context.Context, p models.Provider) ([]string, error)
	// Claim takes the processing lock of an event; false means another worker holds it.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// CredentialRepository stores OAuth token sets per (provider, internal user).
type CredentialRepository interface {
	Get(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error)
	Put(ctx context.Context, p models.Provider, internalUserID string, record *models.CredentialRecord) error
}

// MappingRepository resolves provider user ids to internal user ids.
type MappingRepository interface {
	GetInternalID(ctx context.Context, p models.Provider, providerUserID string) (string, error)
	Put(ctx context.Context, p models.Provider, providerUserID, internalUserID string) error
	Delete(ctx context.Context, p models.Provider, providerUserID string) error
}

// PreferenceRepository stores the per-user calendar routing.
type PreferenceRepository interface {
	Get(ctx context.Context, internalUserID string) (models.CalendarPreference, error)
	Put(ctx context.Context, internalUserID string, prefs models.CalendarPreference) error
}

// TraceRepository keeps the duplicate counters and the per-object debug ring.
type TraceRepository interface {
	IncrementDuplicate(ctx context.Context, p models.Provider, ownerID, objectID, aspectType string, ttl time.Duration) (int64, error)
	Append(ctx context.Context, p models.Provider, objectID string, entry *models.TraceEntry, max int64, ttl time.Duration) error
	List(ctx context.Context, p models.Provider, objectID string) ([]models.TraceEntry, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	Event      EventRepository
	Credential CredentialRepository
	Mapping    MappingRepository
	Preference PreferenceRepository
	Trace      TraceRepository
}

// NewRepositories creates a new instance of all repositories on one store
func NewRepositories(store kv.Store) *Repositories {
	return &Repositories{
		Event:      NewEventRepository(store),
		Credential: NewCredentialRepository(store),
		Mapping:    NewMappingRepository(store),
		Preference: NewPreferenceRepository(store),
		Trace:      NewTraceRepository(store),
	}
}
