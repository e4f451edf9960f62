package search

import "errors"

// Kind tags an error with its HTTP-facing category.
type Kind string

const (
	KindInvalidRequest     Kind = "InvalidRequest"
	KindBackendUnavailable Kind = "BackendUnavailable"
	KindInternal           Kind = "Internal"
)

// Error is a tagged pipeline error. Only fatal conditions become Errors;
// degradations are logged and recovered in place.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a tagged error without a cause.
func NewError(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// WrapError tags an underlying error.
func WrapError(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
