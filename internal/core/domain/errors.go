package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInferenceUnavailable = errors.New("inference unavailable")
	ErrResponseUnparsable   = errors.New("inference response unparsable")
	ErrTemporary            = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ValidationError rejects a single value inside a structured payload,
// addressed by its field path, for example "mappings[2].confidence".
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}
