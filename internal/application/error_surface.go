package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

// User-facing message templates.
const (
	MessageTimeout        = "The query took too long to process. Try simplifying your question."
	MessageNetwork        = "No response from the server. The backend may be unreachable."
	MessageCanceled       = "The request was canceled."
	messageServerFormat   = "Server error (%d): %s"
	messageServerFallback = "the server could not process the request."
	messageUnreadable     = "the response could not be read."
	messageConfigFormat   = "The request could not be sent: %s"
)

// SurfacedErrorKind is the user-facing error category.
type SurfacedErrorKind int

const (
	KindValidation SurfacedErrorKind = iota
	KindTimeout
	KindServer
	KindNetwork
	KindConfiguration
	KindCanceled
)

// String returns the kind name.
func (k SurfacedErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTimeout:
		return "timeout"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindConfiguration:
		return "configuration"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SurfacedError is an error prepared for display.
type SurfacedError struct {
	Kind    SurfacedErrorKind
	Message string

	// Blocking means the failed action cannot succeed until the user
	// changes something. Transient errors may simply be retried.
	Blocking bool
}

// Classify maps any failure to its user-facing form.
func Classify(err error) SurfacedError {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return SurfacedError{Kind: KindValidation, Message: verr.Message(), Blocking: true}
	}

	var gerr *ports.GatewayError
	if errors.As(err, &gerr) {
		return classifyGateway(gerr)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return SurfacedError{Kind: KindTimeout, Message: MessageTimeout}
	case errors.Is(err, context.Canceled):
		return SurfacedError{Kind: KindCanceled, Message: MessageCanceled}
	}

	return SurfacedError{
		Kind:     KindConfiguration,
		Message:  fmt.Sprintf(messageConfigFormat, err),
		Blocking: true,
	}
}

func classifyGateway(gerr *ports.GatewayError) SurfacedError {
	switch gerr.Kind {
	case ports.ErrorKindTimeout:
		return SurfacedError{Kind: KindTimeout, Message: MessageTimeout}
	case ports.ErrorKindCanceled:
		return SurfacedError{Kind: KindCanceled, Message: MessageCanceled}
	case ports.ErrorKindServer:
		detail := gerr.Detail
		if detail == "" {
			detail = messageServerFallback
		}
		return SurfacedError{Kind: KindServer, Message: fmt.Sprintf(messageServerFormat, gerr.StatusCode, detail)}
	case ports.ErrorKindInvalidResponse:
		return SurfacedError{Kind: KindServer, Message: fmt.Sprintf(messageServerFormat, gerr.StatusCode, messageUnreadable)}
	case ports.ErrorKindConfiguration:
		cause := gerr.Detail
		if cause == "" && gerr.Err != nil {
			cause = gerr.Err.Error()
		}
		return SurfacedError{
			Kind:     KindConfiguration,
			Message:  fmt.Sprintf(messageConfigFormat, cause),
			Blocking: true,
		}
	default:
		return SurfacedError{Kind: KindNetwork, Message: MessageNetwork}
	}
}

// ErrorSurface is the single current-error slot shared by chat and
// comparison. A new error replaces the previous one.
type ErrorSurface struct {
	mu      sync.Mutex
	current *SurfacedError
}

// NewErrorSurface returns an empty surface.
func NewErrorSurface() *ErrorSurface { return &ErrorSurface{} }

// Present classifies err, stores it and returns the stored value.
func (s *ErrorSurface) Present(err error) SurfacedError {
	se := Classify(err)
	s.Set(se)
	return se
}

// Set stores an already classified error.
func (s *ErrorSurface) Set(se SurfacedError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &se
}

// Dismiss clears the slot.
func (s *ErrorSurface) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// Current returns the surfaced error, if any.
func (s *ErrorSurface) Current() (SurfacedError, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return SurfacedError{}, false
	}
	return *s.current, true
}
