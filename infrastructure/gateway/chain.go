package gateway

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/ragconsole/internal/ports"
)

// ChainOptions configures StandardChain. Zero values disable the
// corresponding middleware.
type ChainOptions struct {
	ServiceName string

	// Per-operation deadlines. CatalogTimeout also covers collection
	// creation and document job submission.
	ChatTimeout    time.Duration
	CompareTimeout time.Duration
	CatalogTimeout time.Duration

	MaxRetries     int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration
	BreakerMetrics  CircuitBreakerMetrics

	RateLimit rate.Limit
	RateBurst int

	Cache    ports.CacheStore
	CacheTTL time.Duration

	Metrics ports.MetricsCollector
	Tracing bool
}

// StandardChain assembles the middleware stack in its canonical order,
// outermost first: tracing, metrics, cache, retry, circuit breaker, rate
// limit, then the per-operation timeouts closest to the wire so each retry
// attempt gets a fresh deadline.
func StandardChain(o ChainOptions) []Middleware {
	var chain []Middleware

	if o.Tracing {
		name := o.ServiceName
		if name == "" {
			name = "ragconsole"
		}
		chain = append(chain, TracingMiddleware(name))
	}
	if o.Metrics != nil {
		chain = append(chain, MetricsMiddleware(o.Metrics))
	}
	if o.Cache != nil {
		chain = append(chain, CacheMiddleware(o.Cache, o.CacheTTL))
	}
	if o.MaxRetries > 0 {
		base, maxDelay := o.RetryBaseDelay, o.RetryMaxDelay
		if base <= 0 {
			base = 200 * time.Millisecond
		}
		if maxDelay <= 0 {
			maxDelay = 5 * time.Second
		}
		chain = append(chain, RetryMiddleware(o.MaxRetries, base, maxDelay))
	}
	if o.BreakerFailures > 0 {
		chain = append(chain, CircuitBreakerMiddlewareWithMetrics(o.BreakerFailures, o.BreakerCooldown, o.BreakerMetrics))
	}
	if o.RateLimit > 0 {
		burst := o.RateBurst
		if burst <= 0 {
			burst = 1
		}
		chain = append(chain, RateLimitMiddleware(o.RateLimit, burst))
	}
	if d := ValidateTimeout(o.ChatTimeout); d > 0 {
		chain = append(chain, TimeoutMiddleware(d, OpChat))
	}
	if d := ValidateTimeout(o.CompareTimeout); d > 0 {
		chain = append(chain, TimeoutMiddleware(d, OpCompare))
	}
	if d := ValidateTimeout(o.CatalogTimeout); d > 0 {
		chain = append(chain, TimeoutMiddleware(d,
			OpListModels, OpListCollections, OpCreateCollection,
			OpUploadDocuments, OpProcessDocuments))
	}
	return chain
}
