package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/processor"
)

type funcDispatcher func(ctx context.Context, req models.DispatchRequest) error

func (f funcDispatcher) Dispatch(ctx context.Context, req models.DispatchRequest) error {
	return f(ctx, req)
}

func TestRace_Sent(t *testing.T) {
	d := funcDispatcher(func(context.Context, models.DispatchRequest) error { return nil })
	assert.Equal(t, StatusSent, Race(context.Background(), d, models.DispatchRequest{EventKey: "k"}, time.Second))
}

func TestRace_Failed(t *testing.T) {
	d := funcDispatcher(func(context.Context, models.DispatchRequest) error { return errors.New("connection refused") })
	assert.Equal(t, StatusFailed, Race(context.Background(), d, models.DispatchRequest{EventKey: "k"}, time.Second))
}

func TestRace_TimeoutDoesNotCancelInFlight(t *testing.T) {
	release := make(chan struct{})
	finished := make(chan error, 1)
	d := funcDispatcher(func(ctx context.Context, _ models.DispatchRequest) error {
		<-release
		finished <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	status := Race(ctx, d, models.DispatchRequest{EventKey: "k"}, 20*time.Millisecond)
	assert.Equal(t, StatusTimedOut, status)
	assert.Less(t, time.Since(start), time.Second)

	cancel()
	close(release)
	select {
	case err := <-finished:
		assert.NoError(t, err, "the dispatch context must outlive the caller")
	case <-time.After(time.Second):
		t.Fatal("dispatch never completed")
	}
}

func TestHTTPDispatcher(t *testing.T) {
	var got models.DispatchRequest
	var auth, requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ProcessPath, r.URL.Path)
		auth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Request-ID")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL+"/", "trigger-secret", srv.Client())
	err := d.Dispatch(context.Background(), models.DispatchRequest{EventKey: "webhook_event:strava:1:2:create", Source: "strava"})
	require.NoError(t, err, "a processing failure is not a dispatch failure")
	assert.Equal(t, "webhook_event:strava:1:2:create", got.EventKey)
	assert.Equal(t, "strava", got.Source)
	assert.Equal(t, "Bearer trigger-secret", auth)
	assert.NotEmpty(t, requestID)
}

func TestHTTPDispatcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewHTTPDispatcher(url, "", nil)
	assert.Error(t, d.Dispatch(context.Background(), models.DispatchRequest{EventKey: "k"}))
}

type stubProcessor struct {
	key  string
	hint models.Provider
	err  error
}

func (s *stubProcessor) Process(_ context.Context, key string, hint models.Provider) (*processor.Result, error) {
	s.key, s.hint = key, hint
	if s.err != nil {
		return nil, s.err
	}
	return &processor.Result{Key: key, Outcome: processor.OutcomeProcessed}, nil
}

func TestLocalDispatcher(t *testing.T) {
	p := &stubProcessor{}
	d := NewLocalDispatcher(p)
	require.NoError(t, d.Dispatch(context.Background(), models.DispatchRequest{EventKey: "k", Source: "strava"}))
	assert.Equal(t, "k", p.key)
	assert.Equal(t, models.ProviderStrava, p.hint)

	p.err = errors.New("boom")
	assert.Error(t, d.Dispatch(context.Background(), models.DispatchRequest{EventKey: "k"}))
}
