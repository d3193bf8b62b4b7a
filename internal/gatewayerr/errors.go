// Package gatewayerr defines the typed error kinds returned by gateway
// request handling, each carrying the HTTP status it maps to.
package gatewayerr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the class of failure a gateway operation hit.
type Kind string

const (
	// KindBadRequest marks a malformed inbound request (missing query
	// param, invalid header) that is the caller's fault.
	KindBadRequest Kind = "bad_request"
	// KindUnauthorized marks a request missing required consent or
	// credentials.
	KindUnauthorized Kind = "unauthorized"
	// KindBadToken marks a first-party proxy token that failed to decode
	// or verify.
	KindBadToken Kind = "bad_token"
	// KindUpstreamFailure marks a failure reaching or reading from the
	// publisher origin or an integration's backend.
	KindUpstreamFailure Kind = "upstream_failure"
	// KindIntegrationError marks a failure specific to a registered vendor
	// integration (unknown integration ID, disabled integration, handler
	// error).
	KindIntegrationError Kind = "integration_error"
	// KindAuctionEmpty marks an auction round that completed without a
	// usable bid from any provider.
	KindAuctionEmpty Kind = "auction_empty"
	// KindConfigInvalid marks a Settings value that failed validation.
	KindConfigInvalid Kind = "config_invalid"
)

// statusByKind maps each Kind to the HTTP status a handler should respond
// with when it surfaces to the client.
var statusByKind = map[Kind]int{
	KindBadRequest:       http.StatusBadRequest,
	KindUnauthorized:     http.StatusUnauthorized,
	KindBadToken:         http.StatusBadRequest,
	KindUpstreamFailure:  http.StatusBadGateway,
	KindIntegrationError: http.StatusBadGateway,
	KindAuctionEmpty:     http.StatusOK,
	KindConfigInvalid:    http.StatusInternalServerError,
}

// Error is a typed gateway error: a Kind plus the wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status returns the HTTP status code this error should map to.
func (e *Error) Status() int {
	if status, ok := statusByKind[e.Kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// New constructs an *Error of the given kind with a message and no wrapped
// cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// BadRequest builds a KindBadRequest error.
func BadRequest(format string, args ...any) *Error {
	return New(KindBadRequest, fmt.Sprintf(format, args...))
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, fmt.Sprintf(format, args...))
}

// BadToken builds a KindBadToken error wrapping cause.
func BadToken(cause error) *Error {
	return Wrap(KindBadToken, "invalid proxy token", cause)
}

// UpstreamFailure builds a KindUpstreamFailure error wrapping cause.
func UpstreamFailure(message string, cause error) *Error {
	return Wrap(KindUpstreamFailure, message, cause)
}

// IntegrationError builds a KindIntegrationError error wrapping cause.
func IntegrationError(integrationID string, cause error) *Error {
	return Wrap(KindIntegrationError, fmt.Sprintf("integration %q", integrationID), cause)
}

// AuctionEmpty builds a KindAuctionEmpty error.
func AuctionEmpty(message string) *Error {
	return New(KindAuctionEmpty, message)
}

// ConfigInvalid builds a KindConfigInvalid error wrapping cause.
func ConfigInvalid(cause error) *Error {
	return Wrap(KindConfigInvalid, "invalid configuration", cause)
}

// StatusOf returns the HTTP status the given error should map to. Errors
// that are not *Error (or don't wrap one) map to 500.
func StatusOf(err error) int {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Status()
	}
	return http.StatusInternalServerError
}

// KindOf returns the Kind of the given error, or "" if it is not a
// gatewayerr.Error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
