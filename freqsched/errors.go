package freqsched

import "errors"

// ErrInvalidPath is returned when the schedule directory cannot be
// created or opened.
var ErrInvalidPath = errors.New("freqsched: invalid schedule path")

// ErrClosed is returned by operations on a closed scheduler.
var ErrClosed = errors.New("freqsched: scheduler is closed")
