package classify

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when no tokens remain after truncation
	ErrEmptyInput = errors.New("input is empty after tokenization")

	// ErrNoProvider is returned when the model path is needed but disabled
	ErrNoProvider = errors.New("no model provider configured")

	// ErrBadDistribution is returned for malformed probability vectors
	ErrBadDistribution = errors.New("invalid probability distribution")
)

// InferenceError reports that the model capability failed or rejected input
type InferenceError struct {
	Op  string // tokenize, infer, decode
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
