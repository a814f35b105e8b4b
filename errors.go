package openfetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/broady/openfetch/internal/validate"
)

// ErrorCode represents a machine-readable error code derived from an HTTP status.
type ErrorCode string

const (
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeUnauthenticated   ErrorCode = "unauthenticated"
	CodePermissionDenied  ErrorCode = "permission_denied"
	CodeNotFound          ErrorCode = "not_found"
	CodeMethodNotAllowed  ErrorCode = "method_not_allowed"
	CodeConflict          ErrorCode = "conflict"
	CodeGone              ErrorCode = "gone"
	CodeResourceExhausted ErrorCode = "resource_exhausted"
	CodeCanceled          ErrorCode = "canceled"
	CodeInternal          ErrorCode = "internal"
	CodeNotImplemented    ErrorCode = "not_implemented"
	CodeUnavailable       ErrorCode = "unavailable"
	CodeDeadlineExceeded  ErrorCode = "deadline_exceeded"
	CodeUnknown           ErrorCode = "unknown"
)

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeConflict:
		return http.StatusConflict
	case CodeGone:
		return http.StatusGone
	case CodeResourceExhausted:
		return http.StatusTooManyRequests
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCodeFromStatus is the inverse of [ErrorCode.HTTPStatus].
// Statuses below 400 have no error code and map to the empty string.
func ErrorCodeFromStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusConflict:
		return CodeConflict
	case http.StatusGone:
		return CodeGone
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case 499:
		return CodeCanceled
	case http.StatusNotImplemented:
		return CodeNotImplemented
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout:
		return CodeDeadlineExceeded
	}
	switch {
	case status >= 500:
		return CodeInternal
	case status >= 400:
		return CodeUnknown
	}
	return ""
}

// FetchError is returned by [Client.Fetch] when the transport fails or the
// server answers with a status of 400 or above.
//
// Data holds the decoded error body (JSON bodies decode to map/slice values,
// anything else is kept as a string). Err holds the transport error, if any.
type FetchError struct {
	Client  string
	Method  string
	URL     string
	Status  int
	Code    ErrorCode
	Data    any
	Body    []byte
	Header  http.Header
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(e.Method)
	sb.WriteString("] ")
	sb.WriteString(fmt.Sprintf("%q", e.URL))
	if e.Status != 0 {
		sb.WriteString(fmt.Sprintf(": %d %s", e.Status, http.StatusText(e.Status)))
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Decode decodes the error body into v using the response content type.
func (e *FetchError) Decode(v any) error {
	return decodeBody(e.Header.Get("Content-Type"), e.Body, v)
}

// newTransportError wraps a transport failure.
func newTransportError(client, method, u string, err error) *FetchError {
	code := CodeUnavailable
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = CodeCanceled
	}
	return &FetchError{
		Client:  client,
		Method:  method,
		URL:     u,
		Code:    code,
		Message: err.Error(),
		Err:     err,
	}
}

// newStatusError builds an error for a response with status >= 400.
func newStatusError(client string, res *Response) *FetchError {
	fe := &FetchError{
		Client: client,
		Method: res.Method,
		URL:    res.URL,
		Status: res.Status,
		Code:   ErrorCodeFromStatus(res.Status),
		Body:   res.Body,
		Header: res.Header,
	}
	var data any
	if err := res.Decode(&data); err == nil {
		fe.Data = data
	} else if len(res.Body) > 0 {
		fe.Data = string(res.Body)
	}
	if m, ok := fe.Data.(map[string]any); ok {
		if msg, ok := m["message"].(string); ok {
			fe.Message = msg
		}
	}
	return fe
}

// ConfigError reports invalid runtime configuration. Fields maps the
// offending field path to a message.
type ConfigError = validate.Error
