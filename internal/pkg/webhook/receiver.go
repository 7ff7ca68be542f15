// Package webhook accepts provider deliveries: it verifies subscriptions,
// validates and stores events, and triggers their processing.
package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
)

// Source is the provider specific description of a webhook.
type Source interface {
	Provider() models.Provider
	VerificationToken() string
	// VerificationParams names the query parameters of the token and the
	// challenge in the subscription handshake.
	VerificationParams() (token, challenge string)
	ChallengeResponse(challenge string) map[string]string
	// StableKey reports whether redeliveries map onto one storage key.
	StableKey() bool
	Parse(body []byte, receivedAt time.Time) (*models.WebhookEvent, error)
}

// Options bounds storage and the dispatch wait.
type Options struct {
	EventTTL      time.Duration
	DebugTTL      time.Duration
	DebugRingSize int64
	DispatchWait  time.Duration
}

// Receipt tells the caller what happened to a delivery.
type Receipt struct {
	Key        string          `json:"eventKey"`
	Duplicate  bool            `json:"duplicate"`
	Deliveries int64           `json:"deliveries,omitempty"`
	Dispatch   dispatch.Status `json:"dispatch,omitempty"`
}

type Receiver struct {
	events     repository.EventRepository
	traces     repository.TraceRepository
	dispatcher dispatch.Dispatcher
	sources    map[models.Provider]Source
	opts       Options
	now        func() time.Time
}

func NewReceiver(repos *repository.Repositories, dispatcher dispatch.Dispatcher, opts Options) *Receiver {
	return &Receiver{
		events:     repos.Event,
		traces:     repos.Trace,
		dispatcher: dispatcher,
		sources:    make(map[models.Provider]Source),
		opts:       opts,
		now:        time.Now,
	}
}

func (r *Receiver) Register(src Source) {
	r.sources[src.Provider()] = src
}

// WithClock replaces the clock, for tests.
func (r *Receiver) WithClock(now func() time.Time) *Receiver {
	r.now = now
	return r
}

// Source returns the registered source of p.
func (r *Receiver) Source(p models.Provider) (Source, bool) {
	src, ok := r.sources[p]
	return src, ok
}

// Verify answers the subscription handshake. The challenge is echoed only if
// token matches the configured verification token.
func (r *Receiver) Verify(p models.Provider, token, challenge string) (map[string]string, error) {
	src, ok := r.sources[p]
	if !ok {
		return nil, &apperror.ValidationError{Message: fmt.Sprintf("unknown provider %q", p)}
	}
	expected := src.VerificationToken()
	if expected == "" || subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		log.Warnf("[Receiver] %s webhook verification failed", p)
		return nil, &apperror.AuthError{Message: "Invalid verification token"}
	}
	log.Infof("[Receiver] %s webhook verification successful", p)
	return src.ChallengeResponse(challenge), nil
}

// Receive validates and stores one delivery and races its dispatch. Once
// the event is stored the delivery counts as accepted, whatever happens to
// the dispatch.
func (r *Receiver) Receive(ctx context.Context, p models.Provider, body []byte) (*Receipt, error) {
	src, ok := r.sources[p]
	if !ok {
		return nil, &apperror.ValidationError{Message: fmt.Sprintf("unknown provider %q", p)}
	}

	now := r.now()
	event, err := src.Parse(body, now)
	if err != nil {
		log.Warnf("[Receiver] invalid %s webhook event: %v", p, err)
		return nil, err
	}

	receipt := &Receipt{}
	if src.StableKey() {
		receipt.Key = repository.StableEventKey(p, event.OwnerID, event.ObjectID, event.AspectType)
		event.Key = receipt.Key
		created, err := r.events.CreateIfAbsent(ctx, event, r.opts.EventTTL)
		if err != nil {
			return nil, err
		}
		if !created {
			log.Infof("[Receiver] duplicate webhook ignored: %s", receipt.Key)
			receipt.Duplicate = true
			return receipt, nil
		}
	} else {
		receipt.Key = repository.TimeKeyedEventKey(p, event.OwnerID, now)
		receipt.Deliveries = r.countDelivery(ctx, event)
		event.Key = receipt.Key
		if err := r.events.Create(ctx, event, r.opts.EventTTL); err != nil {
			return nil, err
		}
	}
	log.Infof("[Receiver] received %s %s event for %s %s", p, event.AspectType, event.ObjectType, event.ObjectID)

	receipt.Dispatch = dispatch.Race(ctx, r.dispatcher, models.DispatchRequest{EventKey: receipt.Key, Source: string(p)}, r.opts.DispatchWait)

	if !src.StableKey() {
		r.trace(ctx, event, receipt, now)
	}
	return receipt, nil
}

// countDelivery counts deliveries of time-keyed events. The counter is a
// debugging aid only, so failures are logged and ignored.
func (r *Receiver) countDelivery(ctx context.Context, event *models.WebhookEvent) int64 {
	n, err := r.traces.IncrementDuplicate(ctx, event.Provider, event.OwnerID, event.ObjectID, event.AspectType, r.opts.DebugTTL)
	if err != nil {
		log.Warnf("[Receiver] failed to count delivery of %s %s: %v", event.Provider, event.ObjectID, err)
		return 0
	}
	if n > 1 {
		log.Infof("[Receiver] %s object %s delivered %d times", event.Provider, event.ObjectID, n)
	}
	return n
}

func (r *Receiver) trace(ctx context.Context, event *models.WebhookEvent, receipt *Receipt, now time.Time) {
	entry := &models.TraceEntry{
		ID:         uuid.NewString(),
		EventKey:   receipt.Key,
		Provider:   event.Provider,
		AspectType: event.AspectType,
		Deliveries: receipt.Deliveries,
		Duplicate:  receipt.Deliveries > 1,
		Dispatch:   string(receipt.Dispatch),
		ReceivedAt: now,
	}
	if err := r.traces.Append(ctx, event.Provider, event.ObjectID, entry, r.opts.DebugRingSize, r.opts.DebugTTL); err != nil {
		log.Warnf("[Receiver] failed to append trace for %s: %v", receipt.Key, err)
	}
}
