package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted       = errors.New("service not started")
	ErrInvalidGateEvent = errors.New("invalid gate event")
)
