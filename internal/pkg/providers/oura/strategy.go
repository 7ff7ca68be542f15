package oura

import (
	"context"
	"fmt"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
)

// Strategy processes Oura sleep, workout and session events.
type Strategy struct {
	client *Client
	// RenewSubscriptions renews the webhook leases before every fetch.
	RenewSubscriptions bool
}

func NewStrategy(client *Client) *Strategy {
	return &Strategy{client: client, RenewSubscriptions: true}
}

func (s *Strategy) Provider() models.Provider { return models.ProviderOura }

// Accepts only create events of synced data types.
func (s *Strategy) Accepts(event *models.WebhookEvent) bool {
	if event.AspectType != "create" {
		return false
	}
	switch event.ObjectType {
	case DataTypeSleep, DataTypeWorkout, DataTypeSession:
		return true
	}
	return false
}

func (s *Strategy) Prepare(ctx context.Context) error {
	if !s.RenewSubscriptions {
		return nil
	}
	return s.client.RenewAll(ctx)
}

func (s *Strategy) Fetch(ctx context.Context, event *models.WebhookEvent, accessToken string) (processor.Resource, error) {
	var resource processor.Resource
	switch event.ObjectType {
	case DataTypeSleep:
		resource = &Sleep{}
	case DataTypeWorkout:
		resource = &Workout{}
	case DataTypeSession:
		resource = &Session{}
	default:
		return nil, &apperror.ValidationError{Message: fmt.Sprintf("unsupported oura data type %q", event.ObjectType)}
	}
	if err := s.client.FetchResource(ctx, event.ObjectType, event.ObjectID, accessToken, resource); err != nil {
		return nil, err
	}
	return resource, nil
}
