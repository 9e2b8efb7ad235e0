package repository

import "errors"

// Sentinel kinds for inventory setup errors. Transaction errors use the
// lifecycle package sentinels.
var (
	ErrInvalidLayout = errors.New("invalid spot layout")
	ErrDuplicateSpot = errors.New("duplicate spot id")
)
