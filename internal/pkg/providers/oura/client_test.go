package oura

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
)

type fakeOura struct {
	mu       sync.Mutex
	subs     string
	renewed  []string
	renewErr bool
}

func (f *fakeOura) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v2/webhook/subscription":
			assert.Equal(t, "cid", r.Header.Get("x-client-id"))
			assert.Equal(t, "csecret", r.Header.Get("x-client-secret"))
			_, _ = w.Write([]byte(f.subs))
		case r.Method == http.MethodPut:
			if f.renewErr {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			f.renewed = append(f.renewed, r.URL.Path)
			_, _ = w.Write([]byte(`{}`))
		case r.URL.Path == "/v2/usercollection/sleep/abc":
			if r.Header.Get("Authorization") != "Bearer good" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_, _ = w.Write([]byte(`{"id":"abc","bedtime_start":"2025-01-10T23:00:00Z","bedtime_end":"2025-01-11T07:00:00Z","score":85}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newFakeClient(t *testing.T, f *fakeOura) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "cid", "csecret", 0, srv.Client())
}

func TestClient_RenewAll(t *testing.T) {
	f := &fakeOura{subs: `[{"id":"s1","data_type":"sleep"},{"id":"s2","data_type":"workout"}]`}
	c := newFakeClient(t, f)

	require.NoError(t, c.RenewAll(context.Background()))
	assert.Equal(t, []string{"/v2/webhook/subscription/renew/s1", "/v2/webhook/subscription/renew/s2"}, f.renewed)
}

func TestClient_RenewAllFailsLoudly(t *testing.T) {
	cases := map[string]*fakeOura{
		"not an array": {subs: `{"detail":"nope"}`},
		"missing id":   {subs: `[{"data_type":"sleep"}]`},
		"renew fails":  {subs: `[{"id":"s1"}]`, renewErr: true},
	}
	for name, f := range cases {
		t.Run(name, func(t *testing.T) {
			c := newFakeClient(t, f)
			assert.Error(t, c.RenewAll(context.Background()))
		})
	}
}

func TestStrategy_Fetch(t *testing.T) {
	f := &fakeOura{subs: `[]`}
	s := NewStrategy(newFakeClient(t, f))
	event := &models.WebhookEvent{ObjectType: "sleep", ObjectID: "abc", AspectType: "create"}

	require.NoError(t, s.Prepare(context.Background()))
	res, err := s.Fetch(context.Background(), event, "good")
	require.NoError(t, err)
	sleep, ok := res.(*Sleep)
	require.True(t, ok)
	assert.Equal(t, 85.0, *sleep.Score)

	_, err = s.Fetch(context.Background(), event, "stale")
	assert.True(t, apperror.IsUnauthorized(err))

	_, err = s.Fetch(context.Background(), &models.WebhookEvent{ObjectType: "readiness", ObjectID: "x"}, "good")
	var verr *apperror.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestStrategy_Accepts(t *testing.T) {
	s := NewStrategy(nil)
	assert.True(t, s.Accepts(&models.WebhookEvent{ObjectType: "sleep", AspectType: "create"}))
	assert.True(t, s.Accepts(&models.WebhookEvent{ObjectType: "session", AspectType: "create"}))
	assert.False(t, s.Accepts(&models.WebhookEvent{ObjectType: "sleep", AspectType: "update"}))
	assert.False(t, s.Accepts(&models.WebhookEvent{ObjectType: "daily_readiness", AspectType: "create"}))
}

func TestClient_Subscribe(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		got = append(got, r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"new"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "cid", "csecret", 0, srv.Client())
	subs, err := c.Subscribe(context.Background(), "https://calsync.example.com/api/oura-webhook", "tok", SyncedDataTypes)
	require.NoError(t, err)
	assert.Len(t, subs, 3)
	assert.Len(t, got, 3)
}
