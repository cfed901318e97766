package ports

import (
	"errors"
	"fmt"
)

// Common infrastructure errors that can occur during backend interactions.
var (
	// ErrTimeout indicates that a request exceeded the client deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrServiceUnavailable indicates that no response was received.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidResponse indicates that the backend returned a body that
	// could not be decoded.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrBadStatus indicates that the backend answered with a non-success
	// status code.
	ErrBadStatus = errors.New("unsuccessful status")

	// ErrRequestBuild indicates that a request could not be constructed.
	ErrRequestBuild = errors.New("request could not be built")

	// ErrCanceled indicates that the caller abandoned the request.
	ErrCanceled = errors.New("request canceled")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// ErrorKind categorizes a gateway failure so the session can choose the
// user-facing message without inspecting transport details.
type ErrorKind int

const (
	// ErrorKindUnknown indicates an error of an undetermined category.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindTimeout indicates that the client deadline was exceeded.
	ErrorKindTimeout
	// ErrorKindServer indicates a response with a non-success status.
	ErrorKindServer
	// ErrorKindNetwork indicates that the request was sent but no response
	// was received.
	ErrorKindNetwork
	// ErrorKindConfiguration indicates that the request could not be built
	// or sent because of a client-side fault.
	ErrorKindConfiguration
	// ErrorKindCanceled indicates that the caller canceled the request.
	ErrorKindCanceled
	// ErrorKindInvalidResponse indicates a success status whose body could
	// not be decoded at all.
	ErrorKindInvalidResponse
)

// String returns a short identifier for the kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindServer:
		return "server"
	case ErrorKindNetwork:
		return "network"
	case ErrorKindConfiguration:
		return "configuration"
	case ErrorKindCanceled:
		return "canceled"
	case ErrorKindInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// GatewayError represents a classified failure of a backend call.
type GatewayError struct {
	// Kind classifies the error into a standard category.
	Kind ErrorKind

	// Operation is the gateway operation that failed, e.g. "chat".
	Operation string

	// StatusCode holds the HTTP status code, or 0 if no response arrived.
	StatusCode int

	// Detail is the server-provided explanation, when present.
	Detail string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for GatewayError.
func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway error: operation=%s, kind=%s", e.Operation, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(", status=%d", e.StatusCode)
	}
	if e.Detail != "" {
		msg += fmt.Sprintf(", detail=%q", e.Detail)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(", err=%v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error { return e.Err }

// IsRetryable returns true if the failure is transient and an idempotent
// request may be retried.
func (e *GatewayError) IsRetryable() bool {
	switch e.Kind {
	case ErrorKindNetwork:
		return true
	case ErrorKindServer:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}

// NewGatewayError creates a new GatewayError with the given details.
func NewGatewayError(operation string, kind ErrorKind, statusCode int, detail string, err error) *GatewayError {
	return &GatewayError{
		Kind:       kind,
		Operation:  operation,
		StatusCode: statusCode,
		Detail:     detail,
		Err:        err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
