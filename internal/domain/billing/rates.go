package billing

import (
	"fmt"

	"github.com/okian/garage/internal/domain/types"
)

// RateTable maps vehicle type and rate type to a price per hour.
type RateTable map[types.VehicleType]map[types.RateType]float64

// DefaultRates returns the garage-wide prices used when nothing is configured.
func DefaultRates() RateTable {
	return RateTable{
		types.VehicleCompact: {
			types.RateHourly:  3,
			types.RateDaily:   2.5,
			types.RateMonthly: 1.5,
		},
		types.VehicleStandard: {
			types.RateHourly:  5,
			types.RateDaily:   4,
			types.RateMonthly: 2.5,
		},
		types.VehicleOversized: {
			types.RateHourly:  8,
			types.RateDaily:   6.5,
			types.RateMonthly: 4,
		},
	}
}

// HourlyRate returns the price per hour for vt on rt. A missing rate type
// falls back to the vehicle type's hourly price.
func (t RateTable) HourlyRate(vt types.VehicleType, rt types.RateType) (float64, error) {
	byRate, ok := t[vt]
	if !ok {
		return 0, fmt.Errorf("vehicle type %q: %w", vt, ErrNoRate)
	}
	if rate, ok := byRate[rt]; ok {
		return rate, nil
	}
	if rate, ok := byRate[types.RateHourly]; ok {
		return rate, nil
	}
	return 0, fmt.Errorf("vehicle type %q rate %q: %w", vt, rt, ErrNoRate)
}

// Validate requires an hourly price for every vehicle type and no negative prices.
func (t RateTable) Validate() error {
	for _, vt := range types.VehicleTypes {
		if _, ok := t[vt][types.RateHourly]; !ok {
			return fmt.Errorf("missing hourly rate for %s: %w", vt, ErrInvalidPolicy)
		}
	}
	for vt, byRate := range t {
		for rt, rate := range byRate {
			if rate < 0 {
				return fmt.Errorf("rate %s/%s is negative: %w", vt, rt, ErrInvalidPolicy)
			}
		}
	}
	return nil
}

// Clone deep-copies the table.
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for vt, byRate := range t {
		inner := make(map[types.RateType]float64, len(byRate))
		for rt, rate := range byRate {
			inner[rt] = rate
		}
		out[vt] = inner
	}
	return out
}
