package source

import "errors"

// Sentinel kinds for snapshot loading errors.
var (
	ErrMissingFile   = errors.New("snapshot file missing")
	ErrMissingColumn = errors.New("required column missing")
	ErrMalformedRow  = errors.New("malformed row")
)
