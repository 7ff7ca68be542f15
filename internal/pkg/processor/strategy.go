package processor

import (
	"context"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/calendar"
)

// Resource is a fetched provider object, for example an Oura sleep period or
// a Strava activity.
type Resource interface {
	// Syncable reports whether the resource belongs in the calendar at all.
	Syncable() bool
	Entry() (calendar.Entry, error)
	// PreferenceKey selects the target calendar in the user's preferences.
	PreferenceKey() string
}

// Strategy is the provider specific half of the pipeline.
type Strategy interface {
	Provider() models.Provider
	// Accepts filters on the event attributes alone, before any fetch.
	Accepts(event *models.WebhookEvent) bool
	// Prepare runs once per processing attempt before the fetch. Oura renews
	// its webhook subscriptions here.
	Prepare(ctx context.Context) error
	// Fetch loads the resource with the given access token. A 401 must be
	// returned as *apperror.UpstreamError so the processor can refresh.
	Fetch(ctx context.Context, event *models.WebhookEvent, accessToken string) (Resource, error)
}
