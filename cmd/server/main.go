package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"traitsync/internal/ingest"
	"traitsync/internal/orchestrate"
	"traitsync/internal/orchestrate/metrics"
	"traitsync/internal/platform/config"
	"traitsync/internal/platform/httpserver"
	"traitsync/internal/platform/logger"
	platformredis "traitsync/internal/platform/redis"
	"traitsync/internal/profile"
	"traitsync/internal/provider"
	"traitsync/internal/settings"
	"traitsync/internal/token"
	httptransport "traitsync/internal/transport/http"
	id "traitsync/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		log.Error("profile store init failed", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	static := settings.NewStaticSource()
	if cfg.SettingsFile != "" {
		if err := loadSettings(static, cfg.SettingsFile); err != nil {
			log.Error("settings load failed", "file", cfg.SettingsFile, "error", err)
			os.Exit(1)
		}
	}
	source := settings.NewCachedSource(static, redisClient, log)

	// Queued lookups can resolve days after the originating event, so the
	// callback token outlives any single enrichment attempt by a wide margin.
	tokens := token.NewService(cfg.SigningSecret, "traitsync", 30*24*time.Hour)
	m := metrics.New()

	opts := []orchestrate.Option{
		orchestrate.WithLogger(log),
		orchestrate.WithMetrics(m),
	}
	if cfg.WebhookBaseURL != "" {
		opts = append(opts, orchestrate.WithWebhook(tokens, cfg.WebhookBaseURL))
	}
	svc := orchestrate.New(store, source, provider.NewHTTPFactory(cfg.ProviderBaseURL, nil), opts...)
	scheduler := orchestrate.NewScheduler(orchestrate.WithSchedulerMetrics(m))

	handler := httptransport.New(svc, scheduler, tokens, source, log, m)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.KafkaBrokers) > 0 {
		consumer, err := ingest.NewConsumer(ingest.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
			Group:   cfg.KafkaGroup,
		}, svc, log)
		if err != nil {
			log.Error("kafka consumer init failed", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("kafka consumer stopped", "error", err)
			}
		}()
		log.Info("consuming profile events", "topic", cfg.KafkaTopic, "group", cfg.KafkaGroup)
	}

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, release := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer release()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

func newStore(cfg config.Server, log *slog.Logger) (profile.Store, func(), error) {
	if cfg.PostgresURL == "" {
		log.Warn("TRAITSYNC_POSTGRES_URL not set, using in-memory profile store")
		return profile.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := db.Exec(profile.Schema); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("apply schema: %w", err)
	}
	return profile.NewPostgres(db), func() { db.Close() }, nil
}

// loadSettings seeds per-tenant settings from a JSON file keyed by tenant id.
func loadSettings(source *settings.StaticSource, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var byTenant map[string]*settings.Settings
	if err := json.Unmarshal(raw, &byTenant); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	for key, cfg := range byTenant {
		tenant, err := id.ParseTenantID(key)
		if err != nil {
			return fmt.Errorf("settings for %q: %w", key, err)
		}
		if err := source.Put(tenant, cfg); err != nil {
			return fmt.Errorf("settings for %q: %w", key, err)
		}
	}
	return nil
}
