// Package errs defines the error kinds the service reports and their HTTP
// mapping. Services return kinded errors; handlers translate them at the
// edge instead of inventing status codes per call site.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure for transport mapping.
type Kind int

const (
	KindUnknown Kind = iota
	// KindNotFound: a referenced entity is absent or soft-deleted.
	KindNotFound
	// KindValidation: bad foreign key, out-of-range rating, malformed
	// identity number, consent rule violation, inactive-problem mutation.
	KindValidation
	// KindConflict: duplicate identity number.
	KindConflict
	// KindGateway: the external sync system failed.
	KindGateway
	// KindInternal: post-insert id missing, decryption authentication failure.
	KindInternal
)

// Error carries a kind alongside a message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

// Gateway wraps an external-system failure.
func Gateway(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindGateway, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps a failure the caller cannot act on.
func Internal(err error, format string, args ...interface{}) error {
	return &Error{Kind: KindInternal, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }

// HTTPStatus maps an error to the status code the edge should answer with.
// Unknown errors are treated as internal.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
