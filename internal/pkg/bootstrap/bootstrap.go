// Package bootstrap assembles the pipeline from a validated configuration.
// The service binary and the operator CLI share it.
package bootstrap

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/cache"
	"github.com/ManuelReschke/CalSync/internal/pkg/calendar"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
	"github.com/ManuelReschke/CalSync/internal/pkg/credentials"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
	"github.com/ManuelReschke/CalSync/internal/pkg/providers/oura"
	"github.com/ManuelReschke/CalSync/internal/pkg/providers/strava"
	"github.com/ManuelReschke/CalSync/internal/pkg/sweeper"
	"github.com/ManuelReschke/CalSync/internal/pkg/webhook"
)

// outbound calls to providers and the calendar
const upstreamTimeout = 30 * time.Second

// Services is the assembled pipeline.
type Services struct {
	Config      *config.Config
	Store       kv.Store
	Repos       *repository.Repositories
	Credentials *credentials.Service
	Processor   *processor.Processor
	Receiver    *webhook.Receiver
	Sweeper     *sweeper.Sweeper
	OuraClient  *oura.Client
}

// Build wires every component. The store is selected by cfg.StoreDriver.
func Build(cfg *config.Config) (*Services, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	return BuildWithStore(cfg, store), nil
}

// BuildWithStore wires every component on top of an existing store.
func BuildWithStore(cfg *config.Config, store kv.Store) *Services {
	repository.InitializeFactory(store)
	repos := repository.GetGlobalRepositories()

	httpClient := &http.Client{Timeout: upstreamTimeout}

	creds := credentials.NewService(repos.Credential, credentials.ClientsFromConfig(cfg), httpClient)
	sink := calendar.NewGoogleSink(cfg.GoogleCalendarURL, httpClient)

	ouraClient := oura.NewClient(cfg.OuraAPIBaseURL, cfg.Oura.ClientID, cfg.Oura.ClientSecret, cfg.ProviderRatePerSec, httpClient)
	stravaClient := strava.NewClient(cfg.StravaAPIBaseURL, cfg.ProviderRatePerSec, httpClient)

	proc := processor.New(repos, creds, sink, cfg.MaxRetries)
	proc.Register(oura.NewStrategy(ouraClient))
	proc.Register(strava.NewStrategy(stravaClient, cfg.StravaActivityURL))

	var dispatcher dispatch.Dispatcher
	switch cfg.DispatchMode {
	case config.DispatchHTTP:
		dispatcher = dispatch.NewHTTPDispatcher(cfg.PublicBaseURL, cfg.TriggerSecret, nil)
		log.Infof("[Bootstrap] dispatching to %s%s", cfg.PublicBaseURL, dispatch.ProcessPath)
	default:
		dispatcher = dispatch.NewLocalDispatcher(proc)
		log.Info("[Bootstrap] dispatching in process")
	}

	receiver := webhook.NewReceiver(repos, dispatcher, webhook.Options{
		EventTTL:      cfg.EventTTL,
		DebugTTL:      cfg.DebugTTL,
		DebugRingSize: cfg.DebugRingSize,
		DispatchWait:  cfg.DispatchWait,
	})
	receiver.Register(oura.NewSource(cfg.OuraVerificationToken))
	receiver.Register(strava.NewSource(cfg.StravaVerificationToken))

	sw := sweeper.New(repos.Event, proc, sweeper.Options{
		MaxAge:       cfg.SweepMaxAge,
		SettleWindow: cfg.SettleWindow,
		Workers:      cfg.SweepWorkers,
		MaxRetries:   cfg.MaxRetries,
	})

	return &Services{
		Config:      cfg,
		Store:       store,
		Repos:       repos,
		Credentials: creds,
		Processor:   proc,
		Receiver:    receiver,
		Sweeper:     sw,
		OuraClient:  ouraClient,
	}
}

func newStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreRedis:
		cache.SetupCache()
		return kv.NewRedisStore(cache.GetClient()), nil
	case config.StoreMemory:
		log.Warn("[Bootstrap] using the in-memory store, data is lost on restart")
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// Close releases the shared store connection.
func (s *Services) Close() error {
	if s.Config.StoreDriver == config.StoreRedis {
		return cache.Close()
	}
	return nil
}
