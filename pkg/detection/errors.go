package detection

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable is returned when the vision model cannot be reached
	ErrServiceUnavailable = errors.New("vision model service unavailable")

	// ErrDecodeFailure is returned when the submitted bytes are not a readable image
	ErrDecodeFailure = errors.New("could not decode image")

	// ErrEmptyImage is returned for an empty upload; it matches ErrDecodeFailure
	ErrEmptyImage = fmt.Errorf("%w: no image data", ErrDecodeFailure)
)
