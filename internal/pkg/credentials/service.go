// Package credentials reads and refreshes the OAuth token sets of the
// tracker providers and of the calendar account.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"golang.org/x/oauth2"

	"github.com/ManuelReschke/CalSync/app/models"
	"github.com/ManuelReschke/CalSync/app/repository"
	"github.com/ManuelReschke/CalSync/internal/pkg/apperror"
	"github.com/ManuelReschke/CalSync/internal/pkg/config"
)

const (
	defaultTokenType = "Bearer"
	defaultExpiresIn = 3600
)

// Service is the credential store contract used by the processor and the
// refresh endpoints.
type Service struct {
	repo    repository.CredentialRepository
	configs map[models.Provider]*oauth2.Config
	client  *http.Client
	now     func() time.Time
}

// NewService builds a Service with one OAuth2 client per provider.
// httpClient may be nil to use the oauth2 default.
func NewService(repo repository.CredentialRepository, clients map[models.Provider]config.OAuthClient, httpClient *http.Client) *Service {
	configs := make(map[models.Provider]*oauth2.Config, len(clients))
	for p, c := range clients {
		configs[p] = &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  c.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		}
	}
	return &Service{
		repo:    repo,
		configs: configs,
		client:  httpClient,
		now:     time.Now,
	}
}

// ClientsFromConfig collects the OAuth clients of all providers.
func ClientsFromConfig(cfg *config.Config) map[models.Provider]config.OAuthClient {
	return map[models.Provider]config.OAuthClient{
		models.ProviderOura:   cfg.Oura,
		models.ProviderStrava: cfg.Strava,
		models.ProviderGoogle: cfg.Google,
	}
}

// Get returns apperror.CredentialMissingError when the user never connected p.
func (s *Service) Get(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error) {
	return s.repo.Get(ctx, p, internalUserID)
}

func (s *Service) Put(ctx context.Context, p models.Provider, internalUserID string, record *models.CredentialRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	return s.repo.Put(ctx, p, internalUserID, record)
}

// Refresh exchanges the stored refresh token for a new access token and
// persists the result. A rejected refresh token, or no refresh token at all,
// yields apperror.ReauthorizationRequiredError. Everything else is returned
// as a retryable error.
func (s *Service) Refresh(ctx context.Context, p models.Provider, internalUserID string) (*models.CredentialRecord, error) {
	cfg, ok := s.configs[p]
	if !ok {
		return nil, fmt.Errorf("no oauth client configured for %s", p)
	}

	record, err := s.repo.Get(ctx, p, internalUserID)
	if err != nil {
		var missing *apperror.CredentialMissingError
		if errors.As(err, &missing) {
			return nil, &apperror.ReauthorizationRequiredError{Provider: string(p), Cause: err}
		}
		return nil, err
	}
	if !record.HasRefreshToken() {
		return nil, &apperror.ReauthorizationRequiredError{Provider: string(p), Cause: errors.New("no refresh token stored")}
	}

	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: record.RefreshToken}).Token()
	if err != nil {
		return nil, classifyRefreshError(p, err)
	}

	now := s.now()
	record.AccessToken = token.AccessToken
	if token.RefreshToken != "" && token.RefreshToken != record.RefreshToken {
		log.Infof("[Credentials] %s rotated refresh token for user %s", p, internalUserID)
		record.RefreshToken = token.RefreshToken
	}
	record.TokenType = token.TokenType
	if record.TokenType == "" {
		record.TokenType = defaultTokenType
	}
	record.ExpiresIn = expiresIn(token, now)
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		record.Scope = scope
	}
	record.RefreshedAt = &now
	record.LastUsed = &now

	if err := s.repo.Put(ctx, p, internalUserID, record); err != nil {
		return nil, fmt.Errorf("persist refreshed %s credentials: %w", p, err)
	}
	log.Infof("[Credentials] refreshed %s token for user %s", p, internalUserID)
	return record, nil
}

func classifyRefreshError(p models.Provider, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("%s token refresh: %w", p, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || re.ErrorCode == "invalid_grant" {
		log.Warnf("[Credentials] %s rejected refresh token (status=%d code=%s)", p, status, re.ErrorCode)
		return &apperror.ReauthorizationRequiredError{Provider: string(p), Cause: err}
	}
	return &apperror.UpstreamError{Service: string(p) + " token", StatusCode: status, Body: string(re.Body)}
}

func expiresIn(token *oauth2.Token, now time.Time) int {
	switch v := token.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if !token.Expiry.IsZero() {
		if secs := token.Expiry.Sub(now).Seconds(); secs > 0 {
			return int(math.Round(secs))
		}
	}
	return defaultExpiresIn
}
