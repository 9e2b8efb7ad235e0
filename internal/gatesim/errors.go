package gatesim

import "errors"

var (
	// ErrInvalidConfig is returned for unusable run settings.
	ErrInvalidConfig = errors.New("gatesim: invalid config")

	// ErrUnhealthy is returned when the service does not answer /healthz.
	ErrUnhealthy = errors.New("gatesim: service unhealthy")

	// ErrNotSettled is returned when the gate queue does not drain in time.
	ErrNotSettled = errors.New("gatesim: events not processed in time")

	// ErrInconsistent is returned when the final stats disagree with each other.
	ErrInconsistent = errors.New("gatesim: inconsistent garage state")
)
