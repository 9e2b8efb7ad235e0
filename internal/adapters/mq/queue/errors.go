package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrFull   = errors.New("gate event queue is full")
	ErrClosed = errors.New("gate event queue is closed")
)
