package errors

import "errors"

// Application-wide error kinds. Every user-caused failure wraps exactly one of them.
var (
	// ErrNotFound is used when a record or resource does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized covers authentication failures: bad password, missing or
	// invalid token, wrong or expired code.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is used when the caller is authenticated but does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation is used for malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is used for duplicate email/username and repeated credential binding.
	ErrConflict = errors.New("resource state conflict")
)

var clientKinds = []error{ErrNotFound, ErrUnauthorized, ErrForbidden, ErrValidation, ErrConflict}

// Error carries a user-facing message together with its kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// New returns an error of the given kind whose Error() is msg.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// IsClientError reports whether err was caused by the caller rather than the system.
func IsClientError(err error) bool {
	for _, kind := range clientKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
