package models

import "time"

// CredentialRecord is the OAuth token set stored per (provider, internal user).
// It has no TTL and only the refresh flow mutates it after authorization.
type CredentialRecord struct {
	AccessToken    string     `json:"access_token"`
	RefreshToken   string     `json:"refresh_token"`
	TokenType      string     `json:"token_type"`
	ExpiresIn      int        `json:"expires_in"`
	Scope          string     `json:"scope,omitempty"`
	ProviderUserID string     `json:"provider_user_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUsed       *time.Time `json:"last_used,omitempty"`
	RefreshedAt    *time.Time `json:"refreshed_at,omitempty"`
}

// HasRefreshToken reports whether the record can be refreshed.
func (c *CredentialRecord) HasRefreshToken() bool {
	return c != nil && c.RefreshToken != ""
}
