// Package sweeper reconciles the event store: it re-triggers events whose
// dispatch got lost and deletes events past their retention.
package sweeper

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
)

// Options controls one sweep.
type Options struct {
	// MaxAge is the hard retention; older events are deleted unconditionally.
	MaxAge time.Duration
	// SettleWindow protects just received events from racing their own dispatch.
	SettleWindow time.Duration
	Workers      int
	MaxRetries   int
}

type Sweeper struct {
	events repository.EventRepository
	proc   dispatch.EventProcessor
	opts   Options
	now    func() time.Time
}

func New(events repository.EventRepository, proc dispatch.EventProcessor, opts Options) *Sweeper {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = models.DefaultMaxRetries
	}
	return &Sweeper{events: events, proc: proc, opts: opts, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

type action int

const (
	actionSkip action = iota
	actionDelete
	actionProcess
)

// Sweep runs one pass over all stored events.
func (s *Sweeper) Sweep(ctx context.Context) (*models.SweepResult, error) {
	keys, err := s.events.Keys(ctx)
	if err != nil {
		return nil, err
	}
	log.Infof("[Sweeper] found %d webhook events", len(keys))

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result models.SweepResult
	)
	count := func(fn func(r *models.SweepResult)) {
		mu.Lock()
		fn(&result)
		mu.Unlock()
	}

	workerPool := make(chan struct{}, s.opts.Workers)
	now := s.now()

	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		workerPool <- struct{}{}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			defer func() { <-workerPool }()
			s.sweepOne(ctx, key, now, count)
		}(key)
	}
	wg.Wait()

	log.Infof("[Sweeper] done: processed=%d deleted=%d failed=%d skipped=%d",
		result.Processed, result.Deleted, result.Failed, result.Skipped)
	return &result, ctx.Err()
}

func (s *Sweeper) sweepOne(ctx context.Context, key string, now time.Time, count func(func(*models.SweepResult))) {
	event, err := s.events.Get(ctx, key)
	if err != nil {
		var nf *apperror.NotFoundError
		if errors.As(err, &nf) {
			// expired between scan and read
			return
		}
		log.Errorf("[Sweeper] failed to load %s: %v", key, err)
		count(func(r *models.SweepResult) { r.Failed++ })
		return
	}

	switch s.decide(event, now) {
	case actionDelete:
		if err := s.events.Delete(ctx, key); err != nil {
			log.Errorf("[Sweeper] failed to delete %s: %v", key, err)
			count(func(r *models.SweepResult) { r.Failed++ })
			return
		}
		count(func(r *models.SweepResult) { r.Deleted++ })
	case actionProcess:
		res, err := s.proc.Process(ctx, key, event.Provider)
		if err != nil {
			log.Warnf("[Sweeper] failed to process %s: %v", key, err)
			count(func(r *models.SweepResult) { r.Failed++ })
			return
		}
		log.Debugf("[Sweeper] %s: %s", key, res.Outcome)
		if res.Outcome == processor.OutcomeInProgress {
			count(func(r *models.SweepResult) { r.Skipped++ })
			return
		}
		count(func(r *models.SweepResult) { r.Processed++ })
	default:
		count(func(r *models.SweepResult) { r.Skipped++ })
	}
}

func (s *Sweeper) decide(event *models.WebhookEvent, now time.Time) action {
	receivedAt, ok := receivedAt(event)
	if !ok {
		return actionSkip
	}
	age := now.Sub(receivedAt)
	switch {
	case age > s.opts.MaxAge:
		return actionDelete
	case age < s.opts.SettleWindow:
		return actionSkip
	case event.Processed:
		return actionSkip
	case !event.IsEligibleForRetry(s.opts.MaxRetries):
		return actionSkip
	default:
		return actionProcess
	}
}

// receivedAt prefers the stored timestamp and falls back to the trailing
// millisecond segment of time-keyed event keys.
func receivedAt(event *models.WebhookEvent) (time.Time, bool) {
	if !event.ReceivedAt.IsZero() {
		return event.ReceivedAt, true
	}
	idx := strings.LastIndex(event.Key, ":")
	if idx < 0 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(event.Key[idx+1:], 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
