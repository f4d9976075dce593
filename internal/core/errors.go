package core

import "errors"

// Error kinds. Every domain error unwraps to exactly one of these so the
// boundary layer can map it to a response without knowing the sentinel.
var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvariant    = errors.New("invariant violation")
	ErrValidation   = errors.New("validation error")
	ErrRateLimited  = errors.New("rate limited")
	ErrStorage      = errors.New("storage error")
)

var kinds = []error{
	ErrNotFound,
	ErrDuplicate,
	ErrUnauthorized,
	ErrInvalidToken,
	ErrInvariant,
	ErrValidation,
	ErrRateLimited,
	ErrStorage,
}

// Error is a domain error tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

// NewError returns a sentinel that matches kind under errors.Is.
func NewError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

// KindOf returns the kind err belongs to, or nil when err is nil or unclassified.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
