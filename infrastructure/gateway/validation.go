package gateway

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Request timeout bounds accepted from configuration.
const (
	// MinTimeout is the smallest non-zero per-operation timeout.
	MinTimeout = 1 * time.Second
	// MaxTimeout is the largest per-operation timeout.
	MaxTimeout = 30 * time.Minute
)

// ValidateBaseURL validates and normalizes the backend base URL.
// It requires an http or https scheme and a host, and strips a trailing
// slash so paths can be joined onto it.
func ValidateBaseURL(baseURL string) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", fmt.Errorf("base URL is required")
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return "", fmt.Errorf("URL must include a scheme (e.g., http:// or https://)")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, but got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}

	parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
	return parsedURL.String(), nil
}

// ValidateTimeout clamps a per-operation timeout into [MinTimeout, MaxTimeout].
// Zero or negative means no client-side deadline and is returned as zero.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 0
	}
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}
