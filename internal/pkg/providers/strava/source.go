package strava

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

var validate = validator.New()

// Strava sends numeric ids; json.Number keeps them exact and also accepts
// quoted numbers.
type webhookPayload struct {
	ObjectType     string         `json:"object_type" validate:"required"`
	ObjectID       json.Number    `json:"object_id" validate:"required"`
	AspectType     string         `json:"aspect_type" validate:"required"`
	OwnerID        json.Number    `json:"owner_id" validate:"required"`
	SubscriptionID json.Number    `json:"subscription_id"`
	EventTime      int64          `json:"event_time"`
	Updates        map[string]any `json:"updates"`
}

// Source describes Strava webhook deliveries.
type Source struct {
	verificationToken string
}

func NewSource(verificationToken string) *Source {
	return &Source{verificationToken: verificationToken}
}

func (s *Source) Provider() models.Provider { return models.ProviderStrava }

func (s *Source) VerificationToken() string { return s.verificationToken }

func (s *Source) VerificationParams() (string, string) {
	return "hub.verify_token", "hub.challenge"
}

func (s *Source) ChallengeResponse(challenge string) map[string]string {
	return map[string]string{"hub.challenge": challenge}
}

// StableKey is true: redeliveries of one (owner, object, aspect) share a key.
func (s *Source) StableKey() bool { return true }

func (s *Source) Parse(body []byte, receivedAt time.Time) (*models.WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &apperror.ValidationError{Message: "Invalid webhook event"}
	}
	if err := validate.Struct(p); err != nil {
		return nil, &apperror.ValidationError{Message: "Invalid webhook event"}
	}

	event := &models.WebhookEvent{
		Provider:       models.ProviderStrava,
		OwnerID:        p.OwnerID.String(),
		ObjectID:       p.ObjectID.String(),
		ObjectType:     p.ObjectType,
		AspectType:     p.AspectType,
		SubscriptionID: p.SubscriptionID.String(),
		Payload:        json.RawMessage(body),
		ReceivedAt:     receivedAt,
	}
	if p.EventTime > 0 {
		t := time.Unix(p.EventTime, 0).UTC()
		event.EventTime = &t
	}
	return event, nil
}
