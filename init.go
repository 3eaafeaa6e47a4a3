package main

import (
	"context"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/cybership/rating/internal/config"
	"github.com/cybership/rating/internal/rating"
	"github.com/cybership/rating/internal/server"
	"github.com/cybership/rating/internal/storage"
	"github.com/cybership/rating/internal/telemetry"
	"github.com/cybership/rating/pkg/carrier"
	"github.com/cybership/rating/pkg/carrier/mock"
	"github.com/cybership/rating/pkg/carrier/ups"
)

// app bundles the wired process dependencies.
type app struct {
	Config   *config.Config
	Logger   *otelzap.Logger
	Registry *carrier.Registry
	Rating   *rating.Service
	Storage  *storage.Postgres

	tracerShutdown func(context.Context) error
}

func initApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	a := &app{Config: cfg, Logger: logger}

	var tracer trace.Tracer
	if cfg.OTELEnabled {
		t, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer", zap.Error(err))
		} else {
			tracer = t
			a.tracerShutdown = shutdown
		}
	}

	if cfg.DatabaseURL != "" {
		store, err := storage.Open(cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.Storage = store
	}

	a.Registry = initRegistry(cfg, logger, tracer)

	opts := rating.Options{
		Tracer:  tracer,
		Metrics: telemetry.NewMetrics(),
	}
	if a.Storage != nil {
		opts.Quotes = a.Storage
		opts.Audit = a.Storage
	}
	a.Rating = rating.New(a.Registry, logger, opts)

	return a, nil
}

func initRegistry(cfg *config.Config, logger *otelzap.Logger, tracer trace.Tracer) *carrier.Registry {
	registry := carrier.NewRegistry()

	if cfg.UPSEnabled {
		if cfg.UPSUseMock {
			registry.Register(mock.New("ups"))
		} else {
			registry.Register(ups.New(ups.Config{
				ClientID:      cfg.UPSClientID,
				ClientSecret:  cfg.UPSClientSecret,
				AccountNumber: cfg.UPSAccountNumber,
				BaseURL:       cfg.UPSBaseURL,
				AuthURL:       cfg.UPSAuthURL,
				Timeout:       cfg.RequestTimeout,
			}, logger, tracer))
		}
	}

	return registry
}

// QuoteReader exposes the storage read side, or nil when storage is off.
func (a *app) QuoteReader() server.QuoteReader {
	if a.Storage == nil {
		return nil
	}
	return a.Storage
}

func (a *app) Close(ctx context.Context) {
	if a.Storage != nil {
		a.Storage.Close()
	}
	if a.tracerShutdown != nil {
		a.tracerShutdown(ctx)
	}
	a.Logger.Sync()
}
