package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory is returned when a categorical value is outside the
	// fixed encoding enumeration. It is never mapped to a guess.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrInvalidObservation is returned for observations missing required
	// geographic fields or carrying out-of-range values.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrModelUnavailable is returned when neither a fitted model nor the
	// rule-based fallback can produce a result.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrInvalidRegion is returned for malformed optimizer requests such as
	// inverted bounds or an oversized grid.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrInvalidSimulation is returned for malformed simulation requests.
	ErrInvalidSimulation = errors.New("invalid simulation request")
)

// UnknownCategoryError names the categorical field and the value that failed to encode.
type UnknownCategoryError struct {
	Field string
	Value string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrUnknownCategory, e.Field, e.Value)
}

// Is lets errors.Is(err, ErrUnknownCategory) match.
func (e *UnknownCategoryError) Is(target error) bool {
	return target == ErrUnknownCategory
}
