package models

import "time"

// TraceEntry is one debug record in the per-object delivery ring buffer.
type TraceEntry struct {
	ID         string    `json:"id"`
	EventKey   string    `json:"event_key"`
	Provider   Provider  `json:"provider"`
	AspectType string    `json:"aspect_type"`
	Deliveries int64     `json:"deliveries"`
	Duplicate  bool      `json:"duplicate"`
	Dispatch   string    `json:"dispatch,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// DispatchRequest is the body of the internal trigger endpoint.
type DispatchRequest struct {
	EventKey string `json:"eventKey" validate:"required"`
	Source   string `json:"source,omitempty"`
}

// SweepResult aggregates one sweeper pass.
type SweepResult struct {
	Processed int `json:"processed"`
	Deleted   int `json:"deleted"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}
