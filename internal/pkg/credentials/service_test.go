package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
	"github.com/ManuelReschke/CalSync/internal/pkg/kv"
)

func newTestService(t *testing.T, handler http.HandlerFunc) (*Service, repository.CredentialRepository) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	repo := repository.NewCredentialRepository(kv.NewMemoryStore())
	svc := NewService(repo, map[models.Provider]config.OAuthClient{
		models.ProviderStrava: {ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL},
	}, srv.Client())
	return svc, repo
}

func TestRefresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	svc, repo := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.Form.Get("refresh_token"))
		assert.Equal(t, "cid", r.Form.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-access","expires_in":21600}`))
	})
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, models.ProviderStrava, "G1", &models.CredentialRecord{AccessToken: "old", RefreshToken: "old-refresh"}))

	rec, err := svc.Refresh(ctx, models.ProviderStrava, "G1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", rec.AccessToken)
	assert.Equal(t, "old-refresh", rec.RefreshToken)
	assert.Equal(t, "Bearer", rec.TokenType)
	assert.Equal(t, 21600, rec.ExpiresIn)
	require.NotNil(t, rec.RefreshedAt)

	stored, err := repo.Get(ctx, models.ProviderStrava, "G1")
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored.AccessToken)
}

func TestRefresh_ReplacesRotatedRefreshToken(t *testing.T) {
	svc, repo := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"a2","refresh_token":"r2","token_type":"bearer","scope":"activity:read_all"}`))
	})
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, models.ProviderStrava, "G1", &models.CredentialRecord{RefreshToken: "r1"}))

	rec, err := svc.Refresh(ctx, models.ProviderStrava, "G1")
	require.NoError(t, err)
	assert.Equal(t, "r2", rec.RefreshToken)
	assert.Equal(t, "activity:read_all", rec.Scope)
	assert.Equal(t, 3600, rec.ExpiresIn)
}

func TestRefresh_RejectedTokenRequiresReauth(t *testing.T) {
	var calls int32
	svc, repo := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	})
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, models.ProviderStrava, "G1", &models.CredentialRecord{RefreshToken: "revoked"}))

	_, err := svc.Refresh(ctx, models.ProviderStrava, "G1")
	assert.True(t, apperror.IsReauthorizationRequired(err))
	assert.False(t, apperror.Retryable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRefresh_ServerErrorIsRetryable(t *testing.T) {
	svc, repo := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	})
	ctx := context.Background()
	require.NoError(t, repo.Put(ctx, models.ProviderStrava, "G1", &models.CredentialRecord{RefreshToken: "r"}))

	_, err := svc.Refresh(ctx, models.ProviderStrava, "G1")
	require.Error(t, err)
	assert.False(t, apperror.IsReauthorizationRequired(err))
	assert.True(t, apperror.Retryable(err))
}

func TestRefresh_MissingRecordOrRefreshToken(t *testing.T) {
	svc, repo := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("token endpoint must not be called")
	})
	ctx := context.Background()

	_, err := svc.Refresh(ctx, models.ProviderStrava, "nobody")
	assert.True(t, apperror.IsReauthorizationRequired(err))

	require.NoError(t, repo.Put(ctx, models.ProviderStrava, "G2", &models.CredentialRecord{AccessToken: "a"}))
	_, err = svc.Refresh(ctx, models.ProviderStrava, "G2")
	assert.True(t, apperror.IsReauthorizationRequired(err))

	_, err = svc.Refresh(ctx, models.ProviderOura, "G2")
	assert.ErrorContains(t, err, "no oauth client")
}

func TestPut_SetsCreatedAt(t *testing.T) {
	svc, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx := context.Background()

	rec := &models.CredentialRecord{AccessToken: "a"}
	require.NoError(t, svc.Put(ctx, models.ProviderGoogle, "G1", rec))
	assert.False(t, rec.CreatedAt.IsZero())

	loaded, err := svc.Get(ctx, models.ProviderGoogle, "G1")
	require.NoError(t, err)
	assert.Equal(t, "a", loaded.AccessToken)
}
