package conversation

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by Service wraps exactly one of them.
var (
	ErrValidation    = errors.New("invalid request")
	ErrTranscription = errors.New("transcription failed")
	ErrGeneration    = errors.New("generation failed")
	ErrPersistence   = errors.New("persistence failed")
	ErrConflict      = errors.New("conflicting request")
	ErrNotFound      = errors.New("interview not found")
	ErrEnded         = errors.New("interview has ended")
)

func wrap(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
