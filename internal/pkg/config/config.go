// Package config assembles the typed runtime configuration from the
// environment loaded by package env.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/CalSync/internal/pkg/env"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"

	DispatchHTTP  = "http"
	DispatchLocal = "local"
)

// OAuthClient holds the OAuth2 client registration of one provider.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	TokenURL     string `validate:"required,url"`
}

// Config is the complete runtime configuration of the pipeline.
type Config struct {
	Host string
	Port string `validate:"required,numeric"`

	StoreDriver   string `validate:"oneof=redis memory"`
	RedisHost     string `validate:"required_if=StoreDriver redis"`
	RedisPort     string `validate:"required_if=StoreDriver redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	Oura   OAuthClient
	Strava OAuthClient
	Google OAuthClient

	OuraAPIBaseURL     string  `validate:"required,url"`
	StravaAPIBaseURL   string  `validate:"required,url"`
	StravaActivityURL  string  `validate:"required,url"`
	GoogleCalendarURL  string  `validate:"omitempty,url"`
	ProviderRatePerSec float64 `validate:"gt=0"`

	OuraVerificationToken   string
	StravaVerificationToken string

	CleanupSecret string
	TriggerSecret string
	AdminSecret   string

	DispatchMode  string        `validate:"oneof=http local"`
	PublicBaseURL string        `validate:"required_if=DispatchMode http"`
	DispatchWait  time.Duration `validate:"gt=0,lt=10s"`

	EventTTL       time.Duration `validate:"gt=0"`
	DebugTTL       time.Duration `validate:"gt=0"`
	DebugRingSize  int64         `validate:"gt=0"`
	MaxRetries     int           `validate:"gt=0"`
	SweepMaxAge    time.Duration `validate:"gt=0"`
	SettleWindow   time.Duration `validate:"gte=0"`
	SweepInterval  time.Duration `validate:"gte=0"`
	SweepWorkers   int           `validate:"gt=0"`
	WebhookRateMax int           `validate:"gte=0"`
}

// Load reads the configuration from the environment. env.SetupEnvFile must
// have been called before if a .env file should be honoured.
func Load() *Config {
	return &Config{
		Host: env.GetEnv("APP_HOST", "0.0.0.0"),
		Port: env.GetEnv("APP_PORT", "4000"),

		StoreDriver:   env.GetEnv("STORE_DRIVER", StoreRedis),
		RedisHost:     env.GetEnv("CACHE_HOST", "localhost"),
		RedisPort:     env.GetEnv("CACHE_PORT", "6379"),
		RedisPassword: env.GetEnv("CACHE_PASSWORD", ""),
		RedisDB:       env.GetEnvInt("CACHE_DB", 0),

		Oura: OAuthClient{
			ClientID:     env.GetEnv("OURA_CLIENT_ID", ""),
			ClientSecret: env.GetEnv("OURA_CLIENT_SECRET", ""),
			TokenURL:     env.GetEnv("OURA_TOKEN_URL", "https://api.ouraring.com/oauth/token"),
		},
		Strava: OAuthClient{
			ClientID:     env.GetEnv("STRAVA_CLIENT_ID", ""),
			ClientSecret: env.GetEnv("STRAVA_CLIENT_SECRET", ""),
			TokenURL:     env.GetEnv("STRAVA_TOKEN_URL", "https://www.strava.com/api/v3/oauth/token"),
		},
		Google: OAuthClient{
			ClientID:     env.GetEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: env.GetEnv("GOOGLE_CLIENT_SECRET", ""),
			TokenURL:     env.GetEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		},

		OuraAPIBaseURL:     env.GetEnv("OURA_API_URL", "https://api.ouraring.com"),
		StravaAPIBaseURL:   env.GetEnv("STRAVA_API_URL", "https://www.strava.com/api/v3"),
		StravaActivityURL:  env.GetEnv("STRAVA_ACTIVITY_URL", "https://www.strava.com/activities"),
		GoogleCalendarURL:  env.GetEnv("GOOGLE_CALENDAR_URL", ""),
		ProviderRatePerSec: float64(env.GetEnvInt("PROVIDER_RATE_PER_SEC", 5)),

		OuraVerificationToken:   env.GetEnv("OURA_WEBHOOK_VERIFICATION_TOKEN", ""),
		StravaVerificationToken: env.GetEnv("STRAVA_WEBHOOK_VERIFY_TOKEN", ""),

		CleanupSecret: env.GetEnv("WEBHOOK_CLEANUP_SECRET", ""),
		TriggerSecret: env.GetEnv("WEBHOOK_TRIGGER_SECRET", ""),
		AdminSecret:   env.GetEnv("ADMIN_SECRET", ""),

		DispatchMode:  env.GetEnv("DISPATCH_MODE", DispatchLocal),
		PublicBaseURL: env.GetEnv("PUBLIC_BASE_URL", ""),
		DispatchWait:  env.GetEnvDuration("DISPATCH_WAIT", 2500*time.Millisecond),

		EventTTL:       env.GetEnvDuration("EVENT_TTL", 5*24*time.Hour),
		DebugTTL:       env.GetEnvDuration("DEBUG_TTL", 14*24*time.Hour),
		DebugRingSize:  int64(env.GetEnvInt("DEBUG_RING_SIZE", 200)),
		MaxRetries:     env.GetEnvInt("MAX_RETRIES", 3),
		SweepMaxAge:    env.GetEnvDuration("SWEEP_MAX_AGE", 24*time.Hour),
		SettleWindow:   env.GetEnvDuration("SWEEP_SETTLE_WINDOW", 5*time.Minute),
		SweepInterval:  env.GetEnvDuration("SWEEP_INTERVAL", 0),
		SweepWorkers:   env.GetEnvInt("SWEEP_WORKERS", 4),
		WebhookRateMax: env.GetEnvInt("WEBHOOK_RATE_LIMIT", 120),
	}
}

// Validate checks the struct tags and returns the first violation in a
// readable form.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ListenAddr returns host:port for fiber's Listen.
func (c *Config) ListenAddr() string {
	return c.Host + ":" + c.Port
}
