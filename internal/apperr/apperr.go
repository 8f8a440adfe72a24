// Package apperr implements the error taxonomy of the core runtime. Each
// Kind is a sentinel "kind", not a distinct Go type, mirroring the
// reference platform's business-error catalogue: callers compare against
// the Kind, boundaries translate Kind to transport status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind enumerates the error taxonomy. Zero value is KindUnspecified and
// should never be constructed deliberately.
type Kind int

const (
	KindUnspecified Kind = iota
	KindConfig
	KindUnbound
	KindCycle
	KindForbiddenStatement
	KindQueryInvalid
	KindBackendUnavailable
	KindNotFound
	KindConflict
	KindTimeout
	KindCacheCorrupt
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ErrConfig"
	case KindUnbound:
		return "ErrUnbound"
	case KindCycle:
		return "ErrCycle"
	case KindForbiddenStatement:
		return "ErrForbiddenStatement"
	case KindQueryInvalid:
		return "ErrQueryInvalid"
	case KindBackendUnavailable:
		return "ErrBackendUnavailable"
	case KindNotFound:
		return "ErrNotFound"
	case KindConflict:
		return "ErrConflict"
	case KindTimeout:
		return "ErrTimeout"
	case KindCacheCorrupt:
		return "ErrCacheCorrupt"
	case KindInternal:
		return "ErrInternal"
	default:
		return "ErrUnspecified"
	}
}

// AppError is the single error type carrying a Kind, a human message, and
// an optional wrapped cause. Evidence carries backend-native detail (e.g.
// the remote backend's verbatim syntax-error text) for ErrQueryInvalid.
type AppError struct {
	Kind     Kind
	Message  string
	Evidence string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, apperr.New(KindNotFound, "")) match on Kind
// alone, so callers can test for a kind without constructing a full
// message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// New constructs an AppError of the given kind.
func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Wrap constructs an AppError of the given kind wrapping err.
func Wrap(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// WithEvidence attaches backend-native evidence to an AppError and
// returns it for chaining.
func (e *AppError) WithEvidence(evidence string) *AppError {
	e.Evidence = evidence
	return e
}

// KindOf extracts the Kind of err if it is (or wraps) an *AppError,
// otherwise returns KindInternal — the "anything not handled is promoted
// to ErrInternal" rule of §7.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}

	return KindInternal
}

// sentinels usable with errors.Is for the fixed-kind comparisons.
var (
	ErrConfig             = New(KindConfig, "")
	ErrUnbound            = New(KindUnbound, "")
	ErrCycle              = New(KindCycle, "")
	ErrForbiddenStatement = New(KindForbiddenStatement, "")
	ErrQueryInvalid       = New(KindQueryInvalid, "")
	ErrBackendUnavailable = New(KindBackendUnavailable, "")
	ErrNotFound           = New(KindNotFound, "")
	ErrConflict           = New(KindConflict, "")
	ErrTimeout            = New(KindTimeout, "")
	ErrCacheCorrupt       = New(KindCacheCorrupt, "")
	ErrInternal           = New(KindInternal, "")
)
