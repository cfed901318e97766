package application

import "time"

// Default configuration values.
const (
	DefaultAPIURL       = "http://localhost:8000"
	DefaultChatTimeout  = 120 * time.Second
	DefaultChunkSize    = 1024
	MinChunkSize        = 256
	MaxChunkSize        = 4096
	DefaultServiceName  = "ragconsole"
	DefaultCacheTTL     = 30 * time.Second
	DefaultCacheSize    = 64
	DefaultCatalogLimit = 10 * time.Second
)

// Config is the complete client configuration. It is read from YAML,
// overlaid with environment variables and validated before use.
type Config struct {
	// APIURL is the backend root URL.
	APIURL string `yaml:"api_url" validate:"required,baseurl"`

	// ChatTimeout bounds a chat request. Zero selects DefaultChatTimeout.
	ChatTimeout time.Duration `yaml:"chat_timeout" validate:"gte=0"`

	// CompareTimeout bounds a comparison run. Zero, the default, means
	// comparisons wait for the backend however long it takes.
	CompareTimeout time.Duration `yaml:"compare_timeout" validate:"gte=0"`

	// ChunkSize is sent with chat and ingestion requests.
	ChunkSize int `yaml:"chunk_size" validate:"min=256,max=4096"`

	// Gateway tunes the middleware chain in front of the backend.
	Gateway GatewayConfig `yaml:"gateway"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`

	// MetricsAddr, when set, serves Prometheus metrics on /metrics.
	MetricsAddr string `yaml:"metrics_addr" validate:"omitempty,hostname_port"`

	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `yaml:"tracing"`

	// PrefsPath overrides the preference file location.
	PrefsPath string `yaml:"prefs_path"`
}

// GatewayConfig tunes resilience and caching for backend calls.
type GatewayConfig struct {
	// RateLimit is the sustained request rate per second. Zero disables it.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`

	// MaxRetries applies to idempotent listing calls only.
	MaxRetries     int           `yaml:"max_retries" validate:"min=0,max=10"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" validate:"gte=0"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay" validate:"gte=0"`

	// BreakerFailures opens the circuit after that many consecutive
	// backend failures. Zero disables the breaker.
	BreakerFailures int           `yaml:"breaker_failures" validate:"gte=0"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" validate:"gte=0"`

	// CatalogTimeout bounds listing and document calls.
	CatalogTimeout time.Duration `yaml:"catalog_timeout" validate:"gte=0"`

	// CacheTTL caches catalog listings. Zero disables the cache.
	CacheTTL  time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	CacheSize int           `yaml:"cache_size" validate:"gte=0"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	File    string `yaml:"file"`
	Level   string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Console bool   `yaml:"console"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		APIURL:      DefaultAPIURL,
		ChatTimeout: DefaultChatTimeout,
		ChunkSize:   DefaultChunkSize,
		Gateway: GatewayConfig{
			RateLimit:       10,
			Burst:           5,
			MaxRetries:      2,
			RetryBaseDelay:  200 * time.Millisecond,
			RetryMaxDelay:   2 * time.Second,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
			CatalogTimeout:  DefaultCatalogLimit,
			CacheTTL:        DefaultCacheTTL,
			CacheSize:       DefaultCacheSize,
		},
		Log: LogConfig{Level: "info"},
		Tracing: TracingConfig{
			ServiceName: DefaultServiceName,
		},
	}
}
