package optimization

import "errors"

var (
	// ErrInvalidBounds reports an empty bounds set or a pair with Min > Max.
	ErrInvalidBounds = errors.New("optimization: invalid bounds")

	// ErrInvalidIterations reports a non-positive iteration cap.
	ErrInvalidIterations = errors.New("optimization: max iterations must be at least 1")

	// ErrDegenerateFitness reports a generation in which every fitness value
	// came back NaN or infinite, which breaks amplitude-weighted selection.
	ErrDegenerateFitness = errors.New("optimization: all fitness values are non-finite")
)
