package goshawk

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Taxonomy keys used in ErrorEnvelope payloads.
const (
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeMalformedRequest = "malformed_request"
	CodePayloadTooLarge  = "payload_too_large"
	CodeRequestTimeout   = "request_timeout"
	CodeInternal         = "internal"
)

// Registration-time sentinel errors. These are fatal at startup and never
// reach a client.
var (
	ErrRouteConflict = errors.New("goshawk: route already registered")
	ErrFrozen        = errors.New("goshawk: router is frozen")
)

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// HTTPError is an error with an HTTP status code and taxonomy key. Handlers
// return it (usually via Error or Errorf) to control the client-facing
// status; anything else is masked as a generic 500.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Details any
}

// Error returns the error message.
func (e *HTTPError) Error() string { return e.Message }

// StatusCode returns the HTTP status code.
func (e *HTTPError) StatusCode() int { return e.Status }

// Error returns an error with the given HTTP status code and message.
func Error(status int, message string) error {
	return &HTTPError{Status: status, Message: message}
}

// Errorf returns a formatted error with the given HTTP status code.
func Errorf(status int, format string, args ...any) error {
	return &HTTPError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrorStatus extracts the HTTP status code from an error. Returns
// http.StatusInternalServerError if the error does not implement StatusCoder.
func ErrorStatus(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// MethodNotAllowedError reports a path that matched under other methods.
// Allow lists the methods that would have matched.
type MethodNotAllowedError struct {
	Allow []string
}

// Error returns the error message.
func (e *MethodNotAllowedError) Error() string {
	return "method not allowed (allowed: " + strings.Join(e.Allow, ", ") + ")"
}

// StatusCode returns http.StatusMethodNotAllowed.
func (e *MethodNotAllowedError) StatusCode() int { return http.StatusMethodNotAllowed }

var (
	errNotFound = &HTTPError{
		Status:  http.StatusNotFound,
		Code:    CodeNotFound,
		Message: "no route matches the requested path",
	}
	errPayloadTooLarge = &HTTPError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    CodePayloadTooLarge,
		Message: "request body exceeds the configured maximum",
	}
	errRequestTimeout = &HTTPError{
		Status:  http.StatusRequestTimeout,
		Code:    CodeRequestTimeout,
		Message: "timed out reading the request",
	}
)

func malformedError(detail string) *HTTPError {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Code:    CodeMalformedRequest,
		Message: detail,
	}
}

// codeForStatus maps a status code onto a taxonomy key for errors that did
// not declare one.
func codeForStatus(status int) string {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusBadRequest:
		return CodeMalformedRequest
	case http.StatusRequestEntityTooLarge:
		return CodePayloadTooLarge
	case http.StatusRequestTimeout:
		return CodeRequestTimeout
	default:
		if status >= 500 {
			return CodeInternal
		}
		return "error"
	}
}

// ErrorEnvelope is the canonical error body written to clients.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details any    `json:"details,omitempty"`
}

// Normalizer maps any failure surfacing from the dispatch pipeline into a
// canonical error response. Unrecognized failures become a generic 500 whose
// internal detail is withheld from the client and handed to OnInternal.
type Normalizer struct {
	// OnInternal receives unrecognized failures before they are masked.
	// Defaults to logging via slog.
	OnInternal func(err error)
}

// Normalize converts err into a Response carrying an ErrorEnvelope body.
func (n *Normalizer) Normalize(err error) *Response {
	// I/O deadline errors from a slow body read surface as net timeouts.
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		err = errRequestTimeout
	}

	var mna *MethodNotAllowedError
	if errors.As(err, &mna) {
		resp := envelopeResponse(&ErrorEnvelope{
			Code:    CodeMethodNotAllowed,
			Message: "method not allowed for this path",
			Status:  http.StatusMethodNotAllowed,
		})
		resp.Header.Set("Allow", strings.Join(mna.Allow, ", "))
		return resp
	}

	var herr *HTTPError
	if errors.As(err, &herr) {
		code := herr.Code
		if code == "" {
			code = codeForStatus(herr.Status)
		}
		return envelopeResponse(&ErrorEnvelope{
			Code:    code,
			Message: herr.Message,
			Status:  herr.Status,
			Details: herr.Details,
		})
	}

	// Application errors that carry a status but no envelope shape.
	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() < 500 {
		status := sc.StatusCode()
		return envelopeResponse(&ErrorEnvelope{
			Code:    codeForStatus(status),
			Message: err.Error(),
			Status:  status,
		})
	}

	hook := n.OnInternal
	if hook == nil {
		hook = func(err error) { slog.Error("unhandled fault", "err", err) }
	}
	hook(err)

	return envelopeResponse(&ErrorEnvelope{
		Code:    CodeInternal,
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
	})
}

// ErrorHandler returns middleware that catches any failure from the rest of
// the chain and replaces the response with the normalized error envelope.
func ErrorHandler(n *Normalizer) Middleware {
	return func(next Handler) Handler {
		return func(c *Context, req *Request) (*Response, error) {
			resp, err := next(c, req)
			if err != nil {
				return n.Normalize(err), nil
			}
			return resp, nil
		}
	}
}
