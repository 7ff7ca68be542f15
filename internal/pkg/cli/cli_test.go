package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/bootstrap"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

func setupServices(t *testing.T) *bootstrap.Services {
	t.Helper()
	cfg := &config.Config{
		StoreDriver:        config.StoreMemory,
		OuraAPIBaseURL:     "http://oura.invalid",
		StravaAPIBaseURL:   "http://strava.invalid",
		StravaActivityURL:  "https://www.strava.com/activities",
		ProviderRatePerSec: 5,
		DispatchMode:       config.DispatchLocal,
		DispatchWait:       50 * time.Millisecond,
		EventTTL:           time.Hour,
		DebugTTL:           time.Hour,
		DebugRingSize:      10,
		MaxRetries:         3,
		SweepMaxAge:        24 * time.Hour,
		SettleWindow:       5 * time.Minute,
		SweepWorkers:       1,
	}
	svc := bootstrap.BuildWithStore(cfg, kv.NewMemoryStore())
	SetServices(svc)
	t.Cleanup(func() {
		SetServices(nil)
		listProvider, listPending = "", false
		mappingProvider = string(models.ProviderOura)
	})
	return svc
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func storeEvent(t *testing.T, svc *bootstrap.Services, e *models.WebhookEvent) {
	t.Helper()
	require.NoError(t, svc.Repos.Event.Create(context.Background(), e, time.Hour))
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "calsyncctl", rootCmd.Use)
}

func TestMappingCommands(t *testing.T) {
	svc := setupServices(t)

	out, err := run(t, "mapping", "set", "--provider", "strava", "42", "g1")
	require.NoError(t, err)
	assert.Contains(t, out, "strava user 42 -> g1")

	id, err := svc.Repos.Mapping.GetInternalID(context.Background(), models.ProviderStrava, "42")
	require.NoError(t, err)
	assert.Equal(t, "g1", id)

	out, err = run(t, "mapping", "get", "--provider", "strava", "42")
	require.NoError(t, err)
	assert.Equal(t, "g1\n", out)

	_, err = run(t, "mapping", "delete", "--provider", "strava", "42")
	require.NoError(t, err)

	_, err = run(t, "mapping", "get", "--provider", "strava", "42")
	assert.Error(t, err)

	_, err = run(t, "mapping", "set", "--provider", "google", "42", "g1")
	assert.Error(t, err)
}

func TestRequeueCommand(t *testing.T) {
	svc := setupServices(t)
	key := repository.StableEventKey(models.ProviderStrava, "42", "9001", "create")
	storeEvent(t, svc, &models.WebhookEvent{
		Key:       key,
		Provider:  models.ProviderStrava,
		Retries:   3,
		LastError: "boom",
	})

	out, err := run(t, "requeue", key)
	require.NoError(t, err)
	assert.Contains(t, out, "requeued")

	event, err := svc.Repos.Event.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Zero(t, event.Retries)
	assert.Empty(t, event.LastError)
	assert.False(t, event.Terminal)

	_, err = run(t, "requeue", "webhook_event:missing")
	assert.Error(t, err)
}

func TestEventsListCommand(t *testing.T) {
	svc := setupServices(t)
	now := time.Now()
	storeEvent(t, svc, &models.WebhookEvent{
		Key:        repository.StableEventKey(models.ProviderStrava, "42", "1", "create"),
		Provider:   models.ProviderStrava,
		Processed:  true,
		ReceivedAt: now,
	})
	storeEvent(t, svc, &models.WebhookEvent{
		Key:        repository.TimeKeyedEventKey(models.ProviderOura, "U1", now),
		Provider:   models.ProviderOura,
		Terminal:   true,
		LastError:  "no mapping",
		ReceivedAt: now,
	})

	out, err := run(t, "events", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "processed")
	assert.Contains(t, out, "terminal")
	assert.Contains(t, out, "no mapping")

	out, err = run(t, "events", "list", "--provider", "oura", "--pending")
	require.NoError(t, err)
	assert.NotContains(t, out, "webhook_event:strava")
	assert.Contains(t, out, "webhook_event:oura:U1")
}

func TestSweepCommand(t *testing.T) {
	svc := setupServices(t)
	storeEvent(t, svc, &models.WebhookEvent{
		Key:        repository.StableEventKey(models.ProviderStrava, "42", "old", "create"),
		Provider:   models.ProviderStrava,
		ReceivedAt: time.Now().Add(-48 * time.Hour),
	})

	out, err := run(t, "sweep")
	require.NoError(t, err)
	assert.JSONEq(t, `{"processed":0,"deleted":1,"failed":0,"skipped":0}`, out)
}

func TestProcessCommand_TerminalWithoutMapping(t *testing.T) {
	svc := setupServices(t)
	key := repository.StableEventKey(models.ProviderStrava, "42", "9001", "create")
	storeEvent(t, svc, &models.WebhookEvent{
		Key:        key,
		Provider:   models.ProviderStrava,
		OwnerID:    "42",
		ObjectID:   "9001",
		ObjectType: "activity",
		AspectType: "create",
		ReceivedAt: time.Now(),
	})

	out, err := run(t, "process", key)
	assert.Error(t, err)
	assert.Contains(t, out, `"outcome": "terminal"`)
}
