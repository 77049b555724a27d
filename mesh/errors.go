package mesh

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks a missing or malformed required input. Fatal.
	ErrInput = errors.New("invalid input")
	// ErrInsufficientSamples is returned when fewer than 3 centerline points remain.
	ErrInsufficientSamples = fmt.Errorf("%w: insufficient centerline samples", ErrInput)
	// ErrDegenerateSection marks a cut with too few intersection points. Recoverable.
	ErrDegenerateSection = errors.New("degenerate section")
	// ErrSerialization marks an I/O failure while writing output. Fatal.
	ErrSerialization = errors.New("serialization failed")
)

// SampleError attaches the sample or section index to an error.
type SampleError struct {
	Index int
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %03d: %v", e.Index, e.Err)
}

func (e *SampleError) Unwrap() error {
	return e.Err
}

// atSample wraps err with the sample index, or returns nil.
func atSample(index int, err error) error {
	if err == nil {
		return nil
	}
	return &SampleError{Index: index, Err: err}
}
