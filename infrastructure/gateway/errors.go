package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ahrav/ragconsole/internal/ports"
)

// ErrCircuitOpen indicates that the circuit breaker rejected a request
// without contacting the backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ErrorClassifier turns transport failures and unsuccessful responses into
// *ports.GatewayError values.
type ErrorClassifier struct{}

// ClassifyHTTPError classifies a non-success response. The server-provided
// detail is extracted from the usual error body fields when present.
func (ErrorClassifier) ClassifyHTTPError(operation string, statusCode int, body []byte) *ports.GatewayError {
	detail := extractDetail(body)
	err := fmt.Errorf("%w: %d %s", ports.ErrBadStatus, statusCode, http.StatusText(statusCode))
	return ports.NewGatewayError(operation, ports.ErrorKindServer, statusCode, detail, err)
}

// ClassifyTransportError classifies a failure where no response was
// received. ctx is the request context, used to tell a deadline from a
// caller cancellation.
func (ErrorClassifier) ClassifyTransportError(ctx context.Context, operation string, err error) *ports.GatewayError {
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ports.NewGatewayError(operation, ports.ErrorKindTimeout, 0, "", errors.Join(ports.ErrTimeout, err))
	case errors.Is(err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		return ports.NewGatewayError(operation, ports.ErrorKindCanceled, 0, "", errors.Join(ports.ErrCanceled, err))
	case errors.As(err, &ne) && ne.Timeout():
		return ports.NewGatewayError(operation, ports.ErrorKindTimeout, 0, "", errors.Join(ports.ErrTimeout, err))
	default:
		return ports.NewGatewayError(operation, ports.ErrorKindNetwork, 0, "", errors.Join(ports.ErrServiceUnavailable, err))
	}
}

// ClassifyBuildError classifies a request that could not be constructed.
func (ErrorClassifier) ClassifyBuildError(operation string, err error) *ports.GatewayError {
	return ports.NewGatewayError(operation, ports.ErrorKindConfiguration, 0, "", errors.Join(ports.ErrRequestBuild, err))
}

// ClassifyDecodeError classifies a success response whose body could not be
// decoded.
func (ErrorClassifier) ClassifyDecodeError(operation string, statusCode int, err error) *ports.GatewayError {
	return ports.NewGatewayError(operation, ports.ErrorKindInvalidResponse, statusCode,
		"response body could not be decoded", errors.Join(ports.ErrInvalidResponse, err))
}

// extractDetail pulls a human-readable explanation out of an error body.
// FastAPI-style backends put it under "detail", either as a string or as a
// list of validation records with "msg" fields.
func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if !gjson.ValidBytes(body) {
		text := strings.TrimSpace(string(body))
		if len(text) > 200 || strings.HasPrefix(text, "<") {
			return ""
		}
		return text
	}

	for _, field := range []string{"detail", "message", "error"} {
		v := gjson.GetBytes(body, field)
		if !v.Exists() {
			continue
		}
		switch {
		case v.Type == gjson.String:
			return v.String()
		case v.IsArray():
			var msgs []string
			v.ForEach(func(_, item gjson.Result) bool {
				if msg := item.Get("msg"); msg.Exists() {
					msgs = append(msgs, msg.String())
				} else {
					msgs = append(msgs, item.String())
				}
				return true
			})
			return strings.Join(msgs, "; ")
		default:
			return v.Raw
		}
	}
	return ""
}

// asGatewayError extracts the classified error, if any.
func asGatewayError(err error) (*ports.GatewayError, bool) {
	var ge *ports.GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
