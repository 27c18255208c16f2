package perf

import (
	"fmt"

	"github.com/pkg/errors"
)

// InvalidInputError is returned when a series, sample or option set cannot
// be processed at all: empty input, non-finite values, malformed
// segmentations or inconsistent options.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return fmt.Sprintf("invalid input: %s", e.Reason) }

// DegenerateSampleError is returned by the deviance classifier when a sample
// has too few points to make any shape judgment.
type DegenerateSampleError struct {
	Size int
}

func (e *DegenerateSampleError) Error() string {
	return fmt.Sprintf("degenerate sample: %d point(s) is not enough to judge its shape", e.Size)
}

func invalidInput(format string, args ...interface{}) error {
	return errors.WithStack(&InvalidInputError{Reason: fmt.Sprintf(format, args...)})
}

// IsInvalidInput reports whether the cause of err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	_, ok := errors.Cause(err).(*InvalidInputError)
	return ok
}

// IsDegenerateSample reports whether the cause of err is a
// DegenerateSampleError.
func IsDegenerateSample(err error) bool {
	_, ok := errors.Cause(err).(*DegenerateSampleError)
	return ok
}
