package models

import (
	"encoding/json"
	"time"
)

// DefaultMaxRetries is the retry ceiling after which an event stays
// unprocessed for good.
const DefaultMaxRetries = 3

// WebhookEvent is the stored form of one inbound provider delivery together
// with its processing state. Only the processor mutates the state fields.
type WebhookEvent struct {
	Key        string   `json:"-"`
	Provider   Provider `json:"provider"`
	OwnerID    string   `json:"owner_id"`
	ObjectID   string   `json:"object_id"`
	ObjectType string   `json:"object_type"` // Oura data_type, Strava object_type
	AspectType string   `json:"aspect_type"` // Oura event_type, Strava aspect_type

	EventTime      *time.Time      `json:"event_time,omitempty"`
	SubscriptionID string          `json:"subscription_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`

	ReceivedAt  time.Time  `json:"received_at"`
	Processed   bool       `json:"processed"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Retries     int        `json:"retries"`
	LastError   string     `json:"last_error,omitempty"`
	LastRetryAt *time.Time `json:"last_retry,omitempty"`
	// Terminal is set when a non-retryable error stopped processing, such as
	// a missing user mapping or a rejected refresh token.
	Terminal bool `json:"terminal,omitempty"`
}

// MarkAsProcessed records a successful (or intentionally filtered) run.
func (e *WebhookEvent) MarkAsProcessed(now time.Time) {
	e.Processed = true
	e.ProcessedAt = &now
	e.LastError = ""
}

// MarkAsFailed records a retryable failure and returns the new retry count.
// The count never exceeds maxRetries.
func (e *WebhookEvent) MarkAsFailed(errorMsg string, now time.Time, maxRetries int) int {
	if e.Retries < maxRetries {
		e.Retries++
	}
	e.LastError = errorMsg
	e.LastRetryAt = &now
	return e.Retries
}

// MarkAsTerminal records a failure that must not be retried automatically.
func (e *WebhookEvent) MarkAsTerminal(errorMsg string, now time.Time) {
	e.Terminal = true
	e.LastError = errorMsg
	e.LastRetryAt = &now
}

// Requeue clears the failure bookkeeping so the event is eligible again.
func (e *WebhookEvent) Requeue() {
	e.Retries = 0
	e.Terminal = false
	e.LastError = ""
	e.LastRetryAt = nil
}

// IsDead reports whether the retry ceiling was reached without success.
func (e *WebhookEvent) IsDead(maxRetries int) bool {
	return !e.Processed && e.Retries >= maxRetries
}

// IsEligibleForRetry reports whether the sweeper may re-trigger the event.
func (e *WebhookEvent) IsEligibleForRetry(maxRetries int) bool {
	return !e.Processed && !e.Terminal && e.Retries < maxRetries
}

// Age returns how long ago the event was received.
func (e *WebhookEvent) Age(now time.Time) time.Duration {
	return now.Sub(e.ReceivedAt)
}
