package abc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNumSamples is returned when the requested number of
	// posterior samples is not positive or exceeds the reference table
	// size. The request is never silently truncated.
	ErrInvalidNumSamples = errors.New("abc: invalid number of samples")

	// ErrCompressorUnsupported is returned by algorithms that only
	// resolve compression during Sample; the winning feature masks are
	// reported per call in Diagnostics.BestMask instead.
	ErrCompressorUnsupported = errors.New("abc: closed-form compressor not supported; see Diagnostics.BestMask from Sample")

	// ErrStaticCompressorData is returned when a static compressor is
	// asked for a data-dependent compression function.
	ErrStaticCompressorData = errors.New("abc: data must be nil for a static compressor")

	// ErrEmptyMask is returned when a feature mask selects no columns.
	ErrEmptyMask = errors.New("abc: feature mask selects no features")
)

// DimensionError indicates a feature-count mismatch between a query or mask
// and the reference table.
type DimensionError struct {
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("abc: dimension mismatch: expected %d features, got %d", e.Expected, e.Actual)
}
