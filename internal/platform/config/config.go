package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Per-tenant connector settings
// live in internal/settings; this struct only holds what the composition root
// needs to wire transports and stores.
type Server struct {
	Addr          string
	SigningSecret string

	PostgresURL string
	RedisURL    string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	ProviderBaseURL string

	// WebhookBaseURL is the public URL the provider posts async results to.
	// Empty disables async dispatch; enrichment then runs synchronously.
	WebhookBaseURL string

	// SettingsFile optionally seeds per-tenant settings from a JSON file
	// keyed by tenant id. Deployments without a settings API use this.
	SettingsFile string

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            getenv("TRAITSYNC_ADDR", ":8080"),
		SigningSecret:   os.Getenv("TRAITSYNC_SIGNING_SECRET"),
		PostgresURL:     os.Getenv("TRAITSYNC_POSTGRES_URL"),
		RedisURL:        os.Getenv("TRAITSYNC_REDIS_URL"),
		KafkaTopic:      getenv("TRAITSYNC_KAFKA_TOPIC", "profile-updates"),
		KafkaGroup:      getenv("TRAITSYNC_KAFKA_GROUP", "traitsync"),
		ProviderBaseURL: getenv("TRAITSYNC_PROVIDER_URL", "https://api.augur.example.com"),
		WebhookBaseURL:  os.Getenv("TRAITSYNC_WEBHOOK_URL"),
		SettingsFile:    os.Getenv("TRAITSYNC_SETTINGS_FILE"),
		ShutdownTimeout: 10 * time.Second,
	}
	if brokers := os.Getenv("TRAITSYNC_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.SigningSecret == "" {
		// Development default; callback tokens are unverifiable across restarts
		// unless this is pinned in production.
		cfg.SigningSecret = "dev-secret-change-in-production"
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
