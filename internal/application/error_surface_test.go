package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/ragconsole/internal/domain"
	"github.com/ahrav/ragconsole/internal/ports"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantKind     SurfacedErrorKind
		wantMessage  string
		wantBlocking bool
	}{
		{
			name:         "validation",
			err:          domain.Invalid("chat", domain.ErrEmptyMessage, "Please enter a message."),
			wantKind:     KindValidation,
			wantMessage:  "Please enter a message.",
			wantBlocking: true,
		},
		{
			name:        "gateway timeout",
			err:         ports.NewGatewayError("chat", ports.ErrorKindTimeout, 0, "", ports.ErrTimeout),
			wantKind:    KindTimeout,
			wantMessage: "The query took too long to process. Try simplifying your question.",
		},
		{
			name:        "bare deadline exceeded",
			err:         fmt.Errorf("chat: %w", context.DeadlineExceeded),
			wantKind:    KindTimeout,
			wantMessage: MessageTimeout,
		},
		{
			name:        "server with detail",
			err:         ports.NewGatewayError("compare_models", ports.ErrorKindServer, 400, "Judge model must differ", ports.ErrBadStatus),
			wantKind:    KindServer,
			wantMessage: "Server error (400): Judge model must differ",
		},
		{
			name:        "server without detail",
			err:         ports.NewGatewayError("chat", ports.ErrorKindServer, 503, "", ports.ErrBadStatus),
			wantKind:    KindServer,
			wantMessage: "Server error (503): the server could not process the request.",
		},
		{
			name:        "unreadable body",
			err:         ports.NewGatewayError("chat", ports.ErrorKindInvalidResponse, 200, "", ports.ErrInvalidResponse),
			wantKind:    KindServer,
			wantMessage: "Server error (200): the response could not be read.",
		},
		{
			name:        "network",
			err:         ports.NewGatewayError("chat", ports.ErrorKindNetwork, 0, "", ports.ErrServiceUnavailable),
			wantKind:    KindNetwork,
			wantMessage: "No response from the server. The backend may be unreachable.",
		},
		{
			name:         "configuration",
			err:          ports.NewGatewayError("chat", ports.ErrorKindConfiguration, 0, "", errors.New("unsupported protocol scheme")),
			wantKind:     KindConfiguration,
			wantMessage:  "The request could not be sent: unsupported protocol scheme",
			wantBlocking: true,
		},
		{
			name:        "canceled",
			err:         ports.NewGatewayError("chat", ports.ErrorKindCanceled, 0, "", ports.ErrCanceled),
			wantKind:    KindCanceled,
			wantMessage: MessageCanceled,
		},
		{
			name:         "unclassified error",
			err:          errors.New("invalid base url"),
			wantKind:     KindConfiguration,
			wantMessage:  "The request could not be sent: invalid base url",
			wantBlocking: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantMessage, got.Message)
			assert.Equal(t, tt.wantBlocking, got.Blocking)
		})
	}
}

func TestErrorSurface(t *testing.T) {
	s := NewErrorSurface()
	_, ok := s.Current()
	assert.False(t, ok)

	s.Present(ports.NewGatewayError("chat", ports.ErrorKindNetwork, 0, "", nil))
	s.Present(ports.NewGatewayError("chat", ports.ErrorKindTimeout, 0, "", nil))

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, KindTimeout, cur.Kind, "a new error replaces the previous one")

	s.Dismiss()
	_, ok = s.Current()
	assert.False(t, ok)
}
