package application

import (
	"context"
	"errors"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

const catalogFlightKey = "catalogs"

// Catalogs is the result of one catalog load.
type Catalogs struct {
	Models      domain.ModelCatalog
	Collections domain.CollectionCatalog
}

// CatalogLoader fetches the model and collection catalogs. Both listings
// are requested concurrently and concurrent loads share a single flight.
// A failed listing is replaced by its sentinel catalog; Load itself only
// fails when ctx is done.
type CatalogLoader struct {
	gateway ports.Gateway
	logger  ports.Logger
	metrics ports.MetricsCollector
	group   singleflight.Group
}

// NewCatalogLoader creates a loader. logger and metrics may be nil.
func NewCatalogLoader(gw ports.Gateway, logger ports.Logger, metrics ports.MetricsCollector) *CatalogLoader {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &CatalogLoader{gateway: gw, logger: logger, metrics: metrics}
}

// Load returns both catalogs.
func (l *CatalogLoader) Load(ctx context.Context) (Catalogs, error) {
	ch := l.group.DoChan(catalogFlightKey, func() (any, error) {
		return l.load(ctx), nil
	})
	select {
	case <-ctx.Done():
		return Catalogs{}, ctx.Err()
	case res := <-ch:
		return res.Val.(Catalogs), nil
	}
}

// LoadCollections reloads only the collection catalog.
func (l *CatalogLoader) LoadCollections(ctx context.Context) domain.CollectionCatalog {
	return l.loadCollections(ctx)
}

func (l *CatalogLoader) load(ctx context.Context) Catalogs {
	start := time.Now()
	var out Catalogs

	// Failures become sentinels, so neither goroutine returns an error and
	// one listing failing never cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		out.Models = l.loadModels(ctx)
		return nil
	})
	g.Go(func() error {
		out.Collections = l.loadCollections(ctx)
		return nil
	})
	_ = g.Wait()

	if l.metrics != nil {
		status := "success"
		if out.Models.Failed || out.Collections.Failed {
			status = "degraded"
		}
		l.metrics.RecordLatency("catalog_load", time.Since(start), map[string]string{"status": status})
	}
	return out
}

func (l *CatalogLoader) loadModels(ctx context.Context) domain.ModelCatalog {
	resp, err := l.gateway.ListModels(ctx)
	if err != nil {
		l.logger.Warn("catalog", "model listing failed", map[string]any{"error": err.Error()})
		return domain.FailedModelCatalog(modelSentinelFor(err))
	}
	if resp == nil || resp.Models == nil {
		l.logger.Warn("catalog", "model listing has no models array", nil)
		return domain.FailedModelCatalog(domain.SentinelModelsInvalid)
	}
	return domain.ModelCatalog{
		Models:       slices.Clone(resp.Models),
		DefaultModel: resp.DefaultModel,
		Loaded:       true,
	}
}

// modelSentinelFor distinguishes an unreadable body from a failed request.
func modelSentinelFor(err error) string {
	var gerr *ports.GatewayError
	if errors.As(err, &gerr) && gerr.Kind == ports.ErrorKindInvalidResponse {
		return domain.SentinelModelsInvalid
	}
	return domain.SentinelConnectionError
}

func (l *CatalogLoader) loadCollections(ctx context.Context) domain.CollectionCatalog {
	resp, err := l.gateway.ListCollections(ctx)
	if err != nil {
		l.logger.Warn("catalog", "collection listing failed", map[string]any{"error": err.Error()})
		return domain.FailedCollectionCatalog()
	}
	if resp == nil || resp.Collections == nil {
		l.logger.Warn("catalog", "collection listing has no collections array", nil)
		return domain.FailedCollectionCatalog()
	}
	return domain.CollectionCatalog{
		Collections: slices.Clone(resp.Collections),
		Current:     resp.Current,
		Loaded:      true,
	}
}
