// Package apierr defines the registry's error taxonomy: a closed set of
// kinds, each mapped to one HTTP status, carried as a plain Go error
// value.
package apierr

import "net/http"

type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindUpstream   Kind = "upstream"
	KindAuth       Kind = "auth"
	KindForbidden  Kind = "forbidden"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindStorage    Kind = "storage"
	KindIntegrity  Kind = "integrity"
)

// Error is the value every internal package returns on failure; the
// renderError helper in internal/api renders it as {"error": message} with
// Status.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindIntegrity:
		return http.StatusNotFound
	case KindStorage:
		fallthrough
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NotFound(message string) *Error   { return New(KindNotFound, message) }
func Upstream(message string) *Error   { return New(KindUpstream, message) }
func Unauthorized(message string) *Error { return New(KindAuth, message) }
func Forbidden(message string) *Error  { return New(KindForbidden, message) }
func Conflict(message string) *Error   { return New(KindConflict, message) }
func Validation(message string) *Error { return New(KindValidation, message) }
func Storage(message string, cause error) *Error {
	return Wrap(KindStorage, message, cause)
}

// As extracts an *Error from err, if any.
func As(err error) (*Error, bool) {
	ae, ok := err.(*Error)
	return ae, ok
}
