package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

// eventRepository implements the EventRepository interface
type eventRepository struct {
	store kv.Store
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(store kv.Store) EventRepository {
	return &eventRepository{store: store}
}

func (r *eventRepository) Create(ctx context.Context, event *models.WebhookEvent, ttl time.Duration) error {
	if event.Key == "" {
		return errors.New("event key is required")
	}
	return r.write(ctx, event, ttl)
}

func (r *eventRepository) CreateIfAbsent(ctx context.Context, event *models.WebhookEvent, ttl time.Duration) (bool, error) {
	if event.Key == "" {
		return false, errors.New("event key is required")
	}
	data, err := json.Marshal(event)
	if err != nil {
		return false, fmt.Errorf("encode event %s: %w", event.Key, err)
	}
	created, err := r.store.SetNX(ctx, event.Key, data, ttl)
	if err != nil {
		return false, fmt.Errorf("store event %s: %w", event.Key, err)
	}
	return created, nil
}

func (r *eventRepository) Get(ctx context.Context, key string) (*models.WebhookEvent, error) {
	data, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, &apperror.NotFoundError{Key: key}
	}
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", key, err)
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("decode event %s: %w", key, err)
	}
	event.Key = key
	return &event, nil
}

func (r *eventRepository) Exists(ctx context.Context, key string) (bool, error) {
	_, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *eventRepository) Save(ctx context.Context, event *models.WebhookEvent) error {
	return r.write(ctx, event, kv.KeepTTL)
}

func (r *eventRepository) Delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

func (r *eventRepository) Keys(ctx context.Context) ([]string, error) {
	return r.store.Scan(ctx, EventKeyPrefix)
}

func (r *eventRepository) KeysByProvider(ctx context.Context, p models.Provider) ([]string, error) {
	return r.store.Scan(ctx, EventKeyPrefix+string(p)+":")
}

func (r *eventRepository) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.store.SetNX(ctx, lockKey(key), []byte(time.Now().UTC().Format(time.RFC3339Nano)), ttl)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", key, err)
	}
	return ok, nil
}

func (r *eventRepository) Release(ctx context.Context, key string) error {
	return r.store.Delete(ctx, lockKey(key))
}

func (r *eventRepository) write(ctx context.Context, event *models.WebhookEvent, ttl time.Duration) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.Key, err)
	}
	if err := r.store.Set(ctx, event.Key, data, ttl); err != nil {
		return fmt.Errorf("store event %s: %w", event.Key, err)
	}
	return nil
}
