package webhook_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/dispatch"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
	"github.com/ManuelReschke/CalSync/internal/pkg/providers/oura"
	"github.com/ManuelReschke/CalSync/internal/pkg/providers/strava"
	"github.com/ManuelReschke/CalSync/internal/pkg/webhook"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	reqs  []models.DispatchRequest
	block chan struct{}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, req models.DispatchRequest) error {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reqs = append(d.reqs, req)
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.reqs)
}

func newReceiver(t *testing.T, d dispatch.Dispatcher) (*webhook.Receiver, *repository.Repositories, *time.Time) {
	t.Helper()
	now := time.Date(2025, 1, 12, 8, 0, 0, 0, time.UTC)
	store := kv.NewMemoryStore().WithClock(func() time.Time { return now })
	repos := repository.NewRepositories(store)
	r := webhook.NewReceiver(repos, d, webhook.Options{
		EventTTL:      5 * 24 * time.Hour,
		DebugTTL:      14 * 24 * time.Hour,
		DebugRingSize: 200,
		DispatchWait:  200 * time.Millisecond,
	}).WithClock(func() time.Time { return now })
	r.Register(oura.NewSource("oura-secret"))
	r.Register(strava.NewSource("strava-secret"))
	return r, repos, &now
}

const stravaBody = `{"aspect_type":"create","event_time":1736667000,"object_id":9001,"object_type":"activity","owner_id":42,"subscription_id":1}`

func TestVerify(t *testing.T) {
	r, _, _ := newReceiver(t, &recordingDispatcher{})

	resp, err := r.Verify(models.ProviderOura, "oura-secret", "abc")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"challenge": "abc"}, resp)

	resp, err = r.Verify(models.ProviderStrava, "strava-secret", "xyz")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"hub.challenge": "xyz"}, resp)

	_, err = r.Verify(models.ProviderStrava, "oura-secret", "xyz")
	var authErr *apperror.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestVerify_EmptyConfiguredTokenNeverMatches(t *testing.T) {
	repos := repository.NewRepositories(kv.NewMemoryStore())
	r := webhook.NewReceiver(repos, &recordingDispatcher{}, webhook.Options{})
	r.Register(oura.NewSource(""))
	_, err := r.Verify(models.ProviderOura, "", "abc")
	var authErr *apperror.AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestReceive_StableKeyStoresOnce(t *testing.T) {
	d := &recordingDispatcher{}
	r, repos, _ := newReceiver(t, d)
	ctx := context.Background()

	first, err := r.Receive(ctx, models.ProviderStrava, []byte(stravaBody))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "webhook_event:strava:42:9001:create", first.Key)
	assert.Equal(t, dispatch.StatusSent, first.Dispatch)

	for i := 0; i < 3; i++ {
		again, err := r.Receive(ctx, models.ProviderStrava, []byte(stravaBody))
		require.NoError(t, err)
		assert.True(t, again.Duplicate)
	}

	keys, err := repos.Event.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1, "exactly one record per (provider, owner, object, aspect)")
	assert.Equal(t, 1, d.count())

	stored, err := repos.Event.Get(ctx, first.Key)
	require.NoError(t, err)
	assert.False(t, stored.Processed)
	assert.Equal(t, "activity", stored.ObjectType)
}

func TestReceive_ConcurrentDeliveriesStoreOnce(t *testing.T) {
	d := &recordingDispatcher{}
	r, repos, _ := newReceiver(t, d)
	ctx := context.Background()

	const deliveries = 8
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		duplicates int
	)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := r.Receive(ctx, models.ProviderStrava, []byte(stravaBody))
			if !assert.NoError(t, err) {
				return
			}
			if receipt.Duplicate {
				mu.Lock()
				duplicates++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, deliveries-1, duplicates)
	keys, err := repos.Event.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
	assert.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return d.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestReceive_TimeKeyedCountsDeliveries(t *testing.T) {
	d := &recordingDispatcher{}
	r, repos, now := newReceiver(t, d)
	ctx := context.Background()
	body := []byte(`{"event_type":"create","data_type":"sleep","user_id":"U1","object_id":"abc"}`)

	first, err := r.Receive(ctx, models.ProviderOura, body)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Deliveries)

	*now = now.Add(time.Second)
	second, err := r.Receive(ctx, models.ProviderOura, body)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Deliveries)
	assert.NotEqual(t, first.Key, second.Key)

	keys, err := repos.Event.KeysByProvider(ctx, models.ProviderOura)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	traces, err := repos.Trace.List(ctx, models.ProviderOura, "abc")
	require.NoError(t, err)
	require.Len(t, traces, 2)
	assert.True(t, traces[0].Duplicate)
	assert.Equal(t, second.Key, traces[0].EventKey)
	assert.Equal(t, "sent", traces[0].Dispatch)
}

func TestReceive_InvalidPayload(t *testing.T) {
	r, repos, _ := newReceiver(t, &recordingDispatcher{})
	ctx := context.Background()

	_, err := r.Receive(ctx, models.ProviderOura, []byte(`{"event_type":"create"}`))
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)

	keys, err := repos.Event.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReceive_SlowDispatchStillAccepted(t *testing.T) {
	d := &recordingDispatcher{block: make(chan struct{})}
	r, repos, _ := newReceiver(t, d)
	ctx := context.Background()

	start := time.Now()
	receipt, err := r.Receive(ctx, models.ProviderStrava, []byte(stravaBody))
	require.NoError(t, err)
	assert.Equal(t, dispatch.StatusTimedOut, receipt.Dispatch)
	assert.Less(t, time.Since(start), 2*time.Second)

	ok, err := repos.Event.Exists(ctx, receipt.Key)
	require.NoError(t, err)
	assert.True(t, ok)

	close(d.block)
	assert.Eventually(t, func() bool { return d.count() == 1 }, time.Second, 10*time.Millisecond)
}
