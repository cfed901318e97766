package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/ragconsole/infrastructure/gateway"
	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// Environment variables that override file configuration.
const (
	EnvAPIURL        = "RAGCONSOLE_API_URL"
	EnvChatTimeout   = "RAGCONSOLE_CHAT_TIMEOUT"
	EnvLogFile       = "RAGCONSOLE_LOG_FILE"
	EnvMetricsAddr   = "RAGCONSOLE_METRICS_ADDR"
	EnvOTelEnabled   = "OTEL_ENABLED"
	EnvOTelEndpoint  = "OTEL_EXPORTER_OTLP_ENDPOINT"
	DefaultEnvFile   = ".env"
	configEntityName = "config"
)

// ConfigLoader reads, overlays and validates Config.
type ConfigLoader struct {
	validator *validator.Validate
	lookupEnv func(string) (string, bool)
}

// NewConfigLoader registers the custom validators used by Config tags.
// NewConfigLoader returns an error if validator registration fails.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerConfigValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v, lookupEnv: os.LookupEnv}, nil
}

// Validator returns the configured validator so other components can share
// its custom rules.
func (cl *ConfigLoader) Validator() *validator.Validate { return cl.validator }

// LoadConfig is a convenience wrapper around NewConfigLoader and Load.
func LoadConfig(path string, envFiles ...string) (*Config, error) {
	cl, err := NewConfigLoader()
	if err != nil {
		return nil, err
	}
	return cl.Load(path, envFiles...)
}

// Load builds the configuration in layers: defaults, the YAML file at path
// (if any), dotenv files, then environment overrides. The result is
// validated before it is returned.
// Missing dotenv files are ignored; a missing config file is an error only
// when path was given explicitly.
func (cl *ConfigLoader) Load(path string, envFiles ...string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, ports.NewConfigError(path, ports.ErrConfigNotFound)
			}
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cl.parseYAML(data, &cfg); err != nil {
			return nil, ports.NewConfigError(path, err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	if err := cl.applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := cl.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseYAML decodes data over cfg. Unknown keys are rejected so typos are
// not silently ignored; an empty document leaves the defaults untouched.
func (cl *ConfigLoader) parseYAML(data []byte, cfg *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Strict mode - fail on unknown fields.

	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("YAML decode failed: %w", err)
	}
	return nil
}

func loadEnvFiles(files []string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	// godotenv.Load never overrides variables already set in the process.
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg.
func (cl *ConfigLoader) applyEnv(cfg *Config) error {
	if v, ok := cl.env(EnvAPIURL); ok {
		cfg.APIURL = v
	}
	if v, ok := cl.env(EnvChatTimeout); ok {
		d, err := parseDuration(v)
		if err != nil {
			return ports.NewConfigError(EnvChatTimeout, err)
		}
		cfg.ChatTimeout = d
	}
	if v, ok := cl.env(EnvLogFile); ok {
		cfg.Log.File = v
	}
	if v, ok := cl.env(EnvMetricsAddr); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := cl.env(EnvOTelEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return ports.NewConfigError(EnvOTelEnabled, err)
		}
		cfg.Tracing.Enabled = enabled
	}
	if v, ok := cl.env(EnvOTelEndpoint); ok {
		cfg.Tracing.Endpoint = v
	}
	return nil
}

func (cl *ConfigLoader) env(key string) (string, bool) {
	v, ok := cl.lookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// parseDuration accepts Go duration strings and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks cfg against its struct tags and returns a
// *domain.ValidationError listing every failing field.
func (cl *ConfigLoader) Validate(cfg *Config) error {
	err := cl.validator.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	verr := domain.NewValidationError(configEntityName)
	verr.Cause = domain.ErrInvalidConfiguration
	for _, fe := range fieldErrs {
		verr.AddError(describeFieldError(fe))
	}
	return verr
}

func describeFieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "baseurl":
		return fmt.Sprintf("%s must be an http(s) URL with a host, got %q", field, fe.Value())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// registerConfigValidators registers the custom validation functions used
// by Config struct tags.
func registerConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("baseurl", validateBaseURL); err != nil {
		return fmt.Errorf("failed to register baseurl validator: %w", err)
	}
	return nil
}

// validateBaseURL is a validator.Func accepting http(s) URLs with a host.
func validateBaseURL(fl validator.FieldLevel) bool {
	_, err := gateway.ValidateBaseURL(fl.Field().String())
	return err == nil
}
