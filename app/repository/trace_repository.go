package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

type traceRepository struct {
	store kv.Store
}

// NewTraceRepository creates a new trace repository instance
func NewTraceRepository(store kv.Store) TraceRepository {
	return &traceRepository{store: store}
}

// IncrementDuplicate counts deliveries for one (provider, owner, object, aspect).
func (r *traceRepository) IncrementDuplicate(ctx context.Context, p models.Provider, ownerID, objectID, aspectType string, ttl time.Duration) (int64, error) {
	return r.store.Incr(ctx, duplicateKey(p, ownerID, objectID, aspectType), ttl)
}

func (r *traceRepository) Append(ctx context.Context, p models.Provider, objectID string, entry *models.TraceEntry, max int64, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode trace entry: %w", err)
	}
	return r.store.PushCapped(ctx, traceKey(p, objectID), data, max, ttl)
}

// List returns the ring newest first. Unreadable entries are skipped.
func (r *traceRepository) List(ctx context.Context, p models.Provider, objectID string) ([]models.TraceEntry, error) {
	raw, err := r.store.Range(ctx, traceKey(p, objectID))
	if err != nil {
		return nil, err
	}
	entries := make([]models.TraceEntry, 0, len(raw))
	for _, item := range raw {
		var entry models.TraceEntry
		if err := json.Unmarshal(item, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
