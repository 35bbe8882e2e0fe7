package blog

import "errors"

var (
	// ErrNotFound is returned when an article does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is returned for missing or malformed input.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ValidationError describes rejected input. It matches ErrInvalidArgument
// with errors.Is, and Message is safe to show to a reader.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
