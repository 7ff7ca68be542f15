package oura

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/format"
)

var validate = validator.New()

type webhookPayload struct {
	EventType string `json:"event_type" validate:"required"`
	DataType  string `json:"data_type" validate:"required"`
	UserID    string `json:"user_id" validate:"required"`
	ObjectID  string `json:"object_id" validate:"required"`
	EventTime string `json:"event_time"`
}

// Source describes Oura webhook deliveries.
type Source struct {
	verificationToken string
}

func NewSource(verificationToken string) *Source {
	return &Source{verificationToken: verificationToken}
}

func (s *Source) Provider() models.Provider { return models.ProviderOura }

func (s *Source) VerificationToken() string { return s.verificationToken }

func (s *Source) VerificationParams() (string, string) {
	return "verification_token", "challenge"
}

func (s *Source) ChallengeResponse(challenge string) map[string]string {
	return map[string]string{"challenge": challenge}
}

// StableKey is false: Oura events are stored under a receive-time key.
func (s *Source) StableKey() bool { return false }

func (s *Source) Parse(body []byte, receivedAt time.Time) (*models.WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, &apperror.ValidationError{Message: "Invalid webhook event"}
	}
	if err := validate.Struct(p); err != nil {
		return nil, &apperror.ValidationError{Message: "Invalid webhook event"}
	}

	event := &models.WebhookEvent{
		Provider:   models.ProviderOura,
		OwnerID:    p.UserID,
		ObjectID:   p.ObjectID,
		ObjectType: p.DataType,
		AspectType: p.EventType,
		Payload:    json.RawMessage(body),
		ReceivedAt: receivedAt,
	}
	if t := format.ParseTime(p.EventTime); !t.IsZero() {
		event.EventTime = &t
	}
	return event, nil
}
