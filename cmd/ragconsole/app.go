package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/ragconsole/infrastructure/cache"
	"github.com/ahrav/ragconsole/infrastructure/gateway"
	"github.com/ahrav/ragconsole/infrastructure/logging"
	"github.com/ahrav/ragconsole/infrastructure/middleware"
	"github.com/ahrav/ragconsole/infrastructure/prefs"
	"github.com/ahrav/ragconsole/infrastructure/tracing"
	"github.com/ahrav/ragconsole/internal/application"
	"github.com/ahrav/ragconsole/internal/ports"
)

// appOptions selects how the application is assembled.
type appOptions struct {
	ConfigPath string
	EnvFiles   []string

	// Gateway replaces the HTTP client; tests use it.
	Gateway ports.Gateway
}

// app holds the wired components for one process.
type app struct {
	cfg     *application.Config
	logger  ports.Logger
	metrics *middleware.PrometheusMetrics
	session *application.Session
	docs    *application.DocumentManager
	prefs   ports.PreferenceStore

	closers []func(context.Context) error
}

// newApp loads configuration and wires logging, tracing, metrics, the
// gateway middleware chain and the session.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load(opts.ConfigPath, opts.EnvFiles...)
	if err != nil {
		return nil, err
	}

	zl, err := logging.NewZapLogger(logging.Options{
		FilePath: cfg.Log.File,
		Level:    cfg.Log.Level,
		Console:  cfg.Log.Console,
	})
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: zl}
	a.closers = append(a.closers, func(context.Context) error { return zl.Sync() })

	shutdown, err := tracing.Init(ctx, tracing.Options{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.closers = append(a.closers, func(ctx context.Context) error { return shutdown(ctx) })

	a.metrics = middleware.NewPrometheusMetrics()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				zl.Error("main", "metrics server stopped", map[string]any{"error": err.Error()})
			}
		}()
	}

	gw := opts.Gateway
	if gw == nil {
		gw, err = newGateway(cfg, loader, zl, a.metrics)
		if err != nil {
			return nil, err
		}
	}

	prefsPath := cfg.PrefsPath
	if prefsPath == "" {
		if prefsPath, err = prefs.DefaultPath(); err != nil {
			return nil, err
		}
	}
	a.prefs = prefs.NewYAMLStore(prefsPath)

	a.session = application.NewSession(gw, application.SessionOptions{
		ChatTimeout:    cfg.ChatTimeout,
		CompareTimeout: cfg.CompareTimeout,
		ChunkSize:      cfg.ChunkSize,
		Logger:         zl,
		Metrics:        a.metrics,
	})
	a.docs = a.session.Documents()

	zl.Info("main", "ragconsole started", map[string]any{
		"api_url": cfg.APIURL,
		"version": version,
		"tracing": cfg.Tracing.Enabled,
	})
	return a, nil
}

// newGateway builds the HTTP gateway with the standard middleware chain.
// Chat and comparison deadlines are applied by the session, so the chain
// only bounds catalog and document calls.
func newGateway(cfg *application.Config, loader *application.ConfigLoader, logger ports.Logger, metrics *middleware.PrometheusMetrics) (*gateway.Client, error) {
	var store ports.CacheStore
	if cfg.Gateway.CacheTTL > 0 {
		store = cache.NewLRUStore(cfg.Gateway.CacheSize, cfg.Gateway.CacheTTL)
	}

	chain := gateway.StandardChain(gateway.ChainOptions{
		ServiceName:     cfg.Tracing.ServiceName,
		CatalogTimeout:  cfg.Gateway.CatalogTimeout,
		MaxRetries:      cfg.Gateway.MaxRetries,
		RetryBaseDelay:  cfg.Gateway.RetryBaseDelay,
		RetryMaxDelay:   cfg.Gateway.RetryMaxDelay,
		BreakerFailures: cfg.Gateway.BreakerFailures,
		BreakerCooldown: cfg.Gateway.BreakerCooldown,
		BreakerMetrics:  metrics.BreakerMetrics(),
		RateLimit:       rate.Limit(cfg.Gateway.RateLimit),
		RateBurst:       cfg.Gateway.Burst,
		Cache:           store,
		CacheTTL:        cfg.Gateway.CacheTTL,
		Metrics:         metrics,
		Tracing:         cfg.Tracing.Enabled,
	})

	return gateway.NewClient(gateway.Config{
		BaseURL:    cfg.APIURL,
		UserAgent:  "ragconsole/" + version,
		Validator:  loader.Validator(),
		Logger:     logger,
		Middleware: chain,
	})
}

// Close flushes telemetry and logs.
func (a *app) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
