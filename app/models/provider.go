package models

import "strings"

// Provider discriminates the external service an event or credential belongs to.
type Provider string

const (
	ProviderOura   Provider = "oura"
	ProviderStrava Provider = "strava"
	ProviderGoogle Provider = "google"
)

// SourceProviders are the providers that deliver webhooks.
var SourceProviders = []Provider{ProviderOura, ProviderStrava}

// ParseProvider normalizes a provider name. The empty string maps to Oura,
// which was the only source before Strava was added and still triggers
// without a source discriminator.
func ParseProvider(raw string) (Provider, bool) {
	switch Provider(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ProviderOura:
		return ProviderOura, true
	case ProviderStrava:
		return ProviderStrava, true
	case ProviderGoogle:
		return ProviderGoogle, true
	default:
		return "", false
	}
}

func (p Provider) String() string {
	return string(p)
}

// IsSource reports whether p delivers webhook events.
func (p Provider) IsSource() bool {
	for _, s := range SourceProviders {
		if s == p {
			return true
		}
	}
	return false
}
