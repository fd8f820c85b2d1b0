package report

import "errors"

// ErrWriteReport indicates a report output could not be produced.
var ErrWriteReport = errors.New("write report failed")
