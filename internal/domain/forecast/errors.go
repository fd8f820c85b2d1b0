package forecast

import "errors"

var (
	// ErrEmptySeries indicates the input series has no values.
	ErrEmptySeries = errors.New("empty series")

	// ErrInvalidWindow indicates a non-positive window or period count.
	ErrInvalidWindow = errors.New("invalid window")

	// ErrInsufficientData indicates the series cannot support a trend fit.
	ErrInsufficientData = errors.New("insufficient data")
)
