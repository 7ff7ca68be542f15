package strava

import (
	"context"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
)

// Strategy processes newly created Strava activities.
type Strategy struct {
	client      *Client
	activityURL string
}

func NewStrategy(client *Client, activityURL string) *Strategy {
	return &Strategy{client: client, activityURL: activityURL}
}

func (s *Strategy) Provider() models.Provider { return models.ProviderStrava }

// Accepts only activity creations; updates and deletions have no calendar
// counterpart and athlete events are deauthorizations.
func (s *Strategy) Accepts(event *models.WebhookEvent) bool {
	return event.ObjectType == "activity" && event.AspectType == "create"
}

func (s *Strategy) Prepare(context.Context) error { return nil }

func (s *Strategy) Fetch(ctx context.Context, event *models.WebhookEvent, accessToken string) (processor.Resource, error) {
	activity, err := s.client.FetchActivity(ctx, event.ObjectID, accessToken)
	if err != nil {
		return nil, err
	}
	activity.activityURL = s.activityURL
	return activity, nil
}
