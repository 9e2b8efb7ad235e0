package billing

import "errors"

var (
	// ErrInvalidTimeRange is returned when checkout is not strictly after check-in.
	ErrInvalidTimeRange = errors.New("checkout time must be after check-in time")
	// ErrNoRate is returned when the rate table has no price for a vehicle type.
	ErrNoRate = errors.New("no rate configured")
	// ErrInvalidDiscount is returned for negative discounts.
	ErrInvalidDiscount = errors.New("discount must not be negative")
	// ErrInvalidPolicy is returned when a billing policy or rate table is malformed.
	ErrInvalidPolicy = errors.New("invalid billing policy")
)
