package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrRegisterFailed = errors.New("metrics register failed")
	ErrObserveFailed  = errors.New("metrics observe failed")
)
