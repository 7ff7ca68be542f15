// Package processor turns a stored webhook event into a calendar write.
// Processing is idempotent: events already marked processed are never
// written again, so the live dispatch and the sweeper may both trigger it.
// Each attempt holds a per-event claim; a trigger that finds the claim taken
// returns OutcomeInProgress without touching the event.
package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/calendar"
)

// Outcome describes how a processing attempt ended.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeFiltered         Outcome = "filtered"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeRetryScheduled   Outcome = "retry_scheduled"
	OutcomeDead             Outcome = "dead"
	OutcomeTerminal         Outcome = "terminal"
	OutcomeInProgress       Outcome = "in_progress"
)

// DefaultClaimTTL bounds how long a crashed worker can block an event.
const DefaultClaimTTL = 5 * time.Minute

var (
	// ErrRetriesExhausted is returned for events that hit the retry ceiling.
	ErrRetriesExhausted = errors.New("event exhausted its retries")
	// ErrTerminal is returned for events stopped by a non-retryable error.
	ErrTerminal = errors.New("event stopped by a non-retryable error")
)

// Result summarizes one call to Process.
type Result struct {
	Key             string          `json:"eventKey"`
	Provider        models.Provider `json:"provider"`
	Outcome         Outcome         `json:"outcome"`
	Retries         int             `json:"retries"`
	CalendarEventID string          `json:"calendarEventId,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// Processor runs the pipeline for every registered provider.
type Processor struct {
	events     repository.EventRepository
	mappings   repository.MappingRepository
	prefs      repository.PreferenceRepository
	creds      CredentialService
	sink       calendar.Sink
	strategies map[models.Provider]Strategy
	maxRetries int
	claimTTL   time.Duration
	now        func() time.Time
}

func New(repos *repository.Repositories, creds CredentialService, sink calendar.Sink, maxRetries int) *Processor {
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &Processor{
		events:     repos.Event,
		mappings:   repos.Mapping,
		prefs:      repos.Preference,
		creds:      creds,
		sink:       sink,
		strategies: make(map[models.Provider]Strategy),
		maxRetries: maxRetries,
		claimTTL:   DefaultClaimTTL,
		now:        time.Now,
	}
}

// Register adds or replaces the strategy for s.Provider().
func (p *Processor) Register(s Strategy) {
	p.strategies[s.Provider()] = s
}

// WithClock replaces the clock, for tests.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}

// MaxRetries returns the retry ceiling.
func (p *Processor) MaxRetries() int {
	return p.maxRetries
}

// Process loads the event stored under key and syncs it. hint names the
// provider when the stored record predates the provider field.
func (p *Processor) Process(ctx context.Context, key string, hint models.Provider) (*Result, error) {
	claimed, err := p.events.Claim(ctx, key, p.claimTTL)
	if err != nil {
		return nil, err
	}
	if !claimed {
		log.Debugf("[Processor] event %s is being processed by another worker", key)
		return &Result{Key: key, Provider: hint, Outcome: OutcomeInProgress}, nil
	}
	defer func() {
		if err := p.events.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Errorf("[Processor] failed to release claim on %s: %v", key, err)
		}
	}()

	// Read after claiming so a finished concurrent attempt is seen.
	event, err := p.events.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	provider := p.resolveProvider(event, hint)
	result := &Result{Key: key, Provider: provider, Retries: event.Retries}

	switch {
	case event.Processed:
		result.Outcome = OutcomeAlreadyProcessed
		return result, nil
	case event.IsDead(p.maxRetries):
		result.Outcome = OutcomeDead
		result.Error = event.LastError
		return result, ErrRetriesExhausted
	case event.Terminal:
		result.Outcome = OutcomeTerminal
		result.Error = event.LastError
		return result, fmt.Errorf("%w: %s", ErrTerminal, event.LastError)
	}

	strategy, ok := p.strategies[provider]
	if !ok {
		return result, &apperror.ValidationError{Message: fmt.Sprintf("no processor registered for provider %q", provider)}
	}

	outcome, calendarEventID, err := p.run(ctx, event, strategy)
	if err == nil {
		event.MarkAsProcessed(p.now())
		if saveErr := p.events.Save(ctx, event); saveErr != nil {
			return result, fmt.Errorf("mark event processed: %w", saveErr)
		}
		result.Outcome = outcome
		result.CalendarEventID = calendarEventID
		log.Infof("[Processor] %s event %s %s", provider, key, outcome)
		return result, nil
	}

	return p.fail(ctx, event, result, err)
}

func (p *Processor) resolveProvider(event *models.WebhookEvent, hint models.Provider) models.Provider {
	if event.Provider.IsSource() {
		return event.Provider
	}
	if fromKey, ok := repository.ProviderFromEventKey(event.Key); ok {
		return fromKey
	}
	if hint.IsSource() {
		return hint
	}
	return models.ProviderOura
}

func (p *Processor) run(ctx context.Context, event *models.WebhookEvent, strategy Strategy) (Outcome, string, error) {
	provider := strategy.Provider()

	internalUserID, err := p.mappings.GetInternalID(ctx, provider, event.OwnerID)
	if err != nil {
		return "", "", err
	}
	sourceCred, err := p.creds.Get(ctx, provider, internalUserID)
	if err != nil {
		return "", "", err
	}
	calendarCred, err := p.creds.Get(ctx, models.ProviderGoogle, internalUserID)
	if err != nil {
		return "", "", err
	}

	if !strategy.Accepts(event) {
		log.Debugf("[Processor] %s event %s (%s/%s) is not synced", provider, event.Key, event.ObjectType, event.AspectType)
		return OutcomeFiltered, "", nil
	}

	if err := strategy.Prepare(ctx); err != nil {
		return "", "", err
	}

	resource, err := withRefresh(ctx, p.creds, provider, internalUserID, sourceCred, func(token string) (Resource, error) {
		return strategy.Fetch(ctx, event, token)
	})
	if err != nil {
		return "", "", err
	}
	if !resource.Syncable() {
		log.Debugf("[Processor] %s resource for event %s is not synced", provider, event.Key)
		return OutcomeFiltered, "", nil
	}

	entry, err := resource.Entry()
	if err != nil {
		return "", "", err
	}
	prefs, err := p.prefs.Get(ctx, internalUserID)
	if err != nil {
		return "", "", err
	}
	calendarID := prefs.CalendarFor(resource.PreferenceKey())

	eventID, err := withRefresh(ctx, p.creds, models.ProviderGoogle, internalUserID, calendarCred, func(token string) (string, error) {
		return p.sink.CreateEvent(ctx, token, calendarID, entry)
	})
	if err != nil {
		return "", "", err
	}
	return OutcomeProcessed, eventID, nil
}

func (p *Processor) fail(ctx context.Context, event *models.WebhookEvent, result *Result, cause error) (*Result, error) {
	now := p.now()
	result.Error = cause.Error()

	if apperror.Terminal(cause) {
		event.MarkAsTerminal(cause.Error(), now)
		result.Outcome = OutcomeTerminal
		log.Warnf("[Processor] %s event %s stopped: %v", result.Provider, event.Key, cause)
		if err := p.events.Save(ctx, event); err != nil {
			return result, fmt.Errorf("record terminal state of %s: %w (processing error: %v)", event.Key, err, cause)
		}
		return result, cause
	}

	retries := event.MarkAsFailed(cause.Error(), now, p.maxRetries)
	result.Retries = retries
	result.Outcome = OutcomeRetryScheduled
	if retries >= p.maxRetries {
		result.Outcome = OutcomeDead
	}
	if err := p.events.Save(ctx, event); err != nil {
		return result, fmt.Errorf("record retry state of %s: %w (processing error: %v)", event.Key, err, cause)
	}

	if result.Outcome == OutcomeDead {
		log.Errorf("[Processor] %s event %s failed permanently after %d attempts: %v", result.Provider, event.Key, retries, cause)
	} else {
		log.Warnf("[Processor] %s event %s failed (attempt %d/%d): %v", result.Provider, event.Key, retries, p.maxRetries, cause)
	}
	return result, &apperror.TransientProcessingError{Retries: retries, Cause: cause}
}
