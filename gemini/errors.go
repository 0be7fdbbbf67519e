package gemini

import (
	"errors"
	"fmt"
)

// Sentinel errors for common inference failure cases.
var (
	// ErrOverloaded indicates the model endpoint reported overload or quota
	// exhaustion.
	ErrOverloaded = errors.New("inference service overloaded")

	// ErrAuth indicates the API key was rejected.
	ErrAuth = errors.New("inference authentication failed")

	// ErrNoCandidates indicates the response body did not carry the expected
	// candidates/content/parts shape.
	ErrNoCandidates = errors.New("no candidates in inference response")

	// ErrTimeout indicates a single attempt exceeded its deadline.
	ErrTimeout = errors.New("inference attempt timed out")
)

// InferenceError wraps an inference failure with the operation that failed
// and whether a retry could succeed.
type InferenceError struct {
	// Op is the operation that failed.
	Op string

	// Err is the underlying error.
	Err error

	// Transient indicates the failure may resolve on retry.
	Transient bool
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InferenceError) Unwrap() error {
	return e.Err
}

// wrapErr creates a new InferenceError with context.
func wrapErr(op string, err error, transient bool) *InferenceError {
	return &InferenceError{Op: op, Err: err, Transient: transient}
}

// IsTransient checks if an error is a retryable inference failure.
func IsTransient(err error) bool {
	var ie *InferenceError
	if errors.As(err, &ie) {
		return ie.Transient
	}
	return false
}
