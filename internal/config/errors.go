package config

import "errors"

// Sentinel kinds for configuration errors, matchable via errors.Is.
var (
	// ErrLoadConfig wraps failures reading the YAML file or env layer.
	ErrLoadConfig = errors.New("load config failed")

	// ErrInvalidConfig wraps validation failures, including negative
	// signal weights.
	ErrInvalidConfig = errors.New("invalid config")
)
