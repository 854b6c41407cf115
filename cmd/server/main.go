package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hopekit/targeting/internal/api"
	"github.com/hopekit/targeting/internal/audit"
	"github.com/hopekit/targeting/internal/auth"
	"github.com/hopekit/targeting/internal/catalog"
	"github.com/hopekit/targeting/internal/config"
	"github.com/hopekit/targeting/internal/events"
	"github.com/hopekit/targeting/internal/logging"
	"github.com/hopekit/targeting/internal/snapshot"
	"github.com/hopekit/targeting/internal/store"
	"github.com/hopekit/targeting/internal/telemetry"
	"github.com/hopekit/targeting/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.LogLevel, cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	householdIDs, individualIDs, err := cfg.IDPatterns()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid ID pattern")
	}

	telemetry.Init()

	cat, channels, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.CatalogPath).Msg("load catalog")
	}
	holder := snapshot.NewHolder(snapshot.Build(cat, channels))
	telemetry.CatalogFields.Set(float64(cat.Len()))
	logger.Info().Int("fields", cat.Len()).Str("etag", holder.Load().ETag).Msg("catalog loaded")

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.StoreType).Msg("store")
	}
	defer st.Close()

	keys, err := auth.ParseKeyEntries(cfg.APIKeyHashes)
	if err != nil {
		logger.Fatal().Err(err).Msg("API_KEY_HASHES")
	}

	publisher := buildPublisher(cfg, logger)
	defer publisher.Close()

	auditSvc := audit.NewService(audit.NewLogSink(logger), logger)
	defer auditSvc.Close()

	srvAPI := api.NewServer(api.Deps{
		Store:               st,
		Catalog:             holder,
		Publisher:           publisher,
		Audit:               auditSvc,
		Logger:              logger,
		AdminAPIKey:         cfg.AdminAPIKey,
		APIKeys:             keys,
		HouseholdIDPattern:  householdIDs,
		IndividualIDPattern: individualIDs,
		RateLimitPerIP:      cfg.RateLimitPerIP,
		RequestTimeout:      cfg.RequestTimeout,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srvAPI.Router(),
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      0, // catalog stream is long-lived
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("env", cfg.AppEnv).Msg("listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server")
		}
	}()

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 3 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server")
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for sig := range signals {
		if sig != syscall.SIGHUP {
			break
		}
		reloadCatalog(holder, auditSvc, cfg.CatalogPath, logger)
	}

	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	logger.Info().Msg("stopped")
}

// reloadCatalog swaps in the catalog file on SIGHUP. A broken file keeps
// the running catalog.
func reloadCatalog(holder *snapshot.Holder, auditSvc *audit.Service, path string, logger zerolog.Logger) {
	s, err := holder.Reload(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("catalog reload failed")
		auditSvc.Log(audit.CatalogReload(path, "", err))
		return
	}
	auditSvc.Log(audit.CatalogReload(path, s.ETag, nil))
	telemetry.CatalogFields.Set(float64(s.Catalog.Len()))
	logger.Info().Int("fields", s.Catalog.Len()).Str("etag", s.ETag).Msg("catalog reloaded")
}

// buildPublisher fans change events out to webhooks and RabbitMQ. Without
// either, events are only logged.
func buildPublisher(cfg *config.Config, logger zerolog.Logger) events.Publisher {
	var sinks events.Multi

	if len(cfg.WebhookURLs) > 0 {
		d := webhook.NewDispatcher(webhook.EndpointsFromURLs(cfg.WebhookURLs), cfg.WebhookSecret, logger)
		d.Start()
		sinks = append(sinks, d)
		logger.Info().Int("endpoints", len(cfg.WebhookURLs)).Msg("webhook delivery enabled")
	}

	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			// the API stays usable without the broker
			logger.Error().Err(err).Msg("amqp publisher disabled")
		} else {
			sinks = append(sinks, p)
			logger.Info().Str("exchange", cfg.AMQPExchange).Msg("amqp publishing enabled")
		}
	}

	if len(sinks) == 0 {
		return events.LogPublisher{Logger: logger}
	}
	return sinks
}
