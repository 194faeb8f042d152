package layout

import "errors"

var (
	// ErrInvalidDimensions reports a ceiling whose dimensions are not
	// positive, or whose available span vanishes once the perimeter gap is
	// subtracted from both sides.
	ErrInvalidDimensions = errors.New("layout: invalid ceiling dimensions")

	// ErrRunNotFound reports a run ID with no stored record.
	ErrRunNotFound = errors.New("layout: run not found")
)
