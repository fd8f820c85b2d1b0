package repository

import "errors"

// Sentinel kinds for ranked store errors.
var (
	ErrNotFound     = errors.New("item not found")
	ErrInvalidLimit = errors.New("invalid recommendation limit")
)
