// Package billing computes parking durations and charges.
package billing

import (
	"fmt"
	"math"
	"time"

	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// Input is everything needed to price one stay.
type Input struct {
	CheckIn     time.Time
	CheckOut    time.Time
	VehicleType types.VehicleType
	RateType    types.RateType
	Spot        model.Spot // features drive surcharges
	ApplyGrace  *bool      // nil uses the policy default
	Discount    float64

	// AllowNonPositive treats a checkout at or before check-in as a zero length
	// stay instead of failing. Used by administrative overrides.
	AllowNonPositive bool
}

// Charge is the priced result of a stay.
type Charge struct {
	Duration      model.DurationBreakdown `json:"duration"`
	BillableHours int                     `json:"billable_hours"`
	HourlyRate    float64                 `json:"hourly_rate"`
	Surcharge     float64                 `json:"surcharge_per_hour"`
	Subtotal      float64                 `json:"subtotal"`
	Discount      float64                 `json:"discount"`
	Total         float64                 `json:"total"`
	GraceApplied  bool                    `json:"grace_applied"`
}

// Breakdown splits the time between check-in and checkout into hours and minutes.
func Breakdown(checkIn, checkOut time.Time) (model.DurationBreakdown, error) {
	if !checkOut.After(checkIn) {
		return model.DurationBreakdown{}, fmt.Errorf("check-in %s, checkout %s: %w",
			checkIn.Format(time.RFC3339), checkOut.Format(time.RFC3339), ErrInvalidTimeRange)
	}
	return model.NewDurationBreakdown(checkOut.Sub(checkIn)), nil
}

// BillableHours converts a stay into whole billable hours.
func BillableHours(d time.Duration, p Policy) int {
	if d <= 0 {
		return 0
	}
	hours := d.Hours()
	if p.Rounding == RoundNearest {
		return max(int(math.Floor(hours+0.5)), 1)
	}
	return int(math.Ceil(hours))
}

// Compute prices a stay. Within the grace period, when grace applies, the
// stay is free. The total never goes below zero.
func Compute(in Input, rates RateTable, p Policy) (Charge, error) {
	if in.Discount < 0 {
		return Charge{}, fmt.Errorf("discount %v: %w", in.Discount, ErrInvalidDiscount)
	}

	elapsed := in.CheckOut.Sub(in.CheckIn)
	duration, err := Breakdown(in.CheckIn, in.CheckOut)
	if err != nil {
		if !in.AllowNonPositive {
			return Charge{}, err
		}
		elapsed = 0
	}

	rate, err := rates.HourlyRate(in.VehicleType, in.RateType)
	if err != nil {
		return Charge{}, err
	}

	c := Charge{
		Duration:   duration,
		HourlyRate: rate,
		Surcharge:  surcharge(in.Spot, p),
	}

	applyGrace := p.ApplyGraceByDefault
	if in.ApplyGrace != nil {
		applyGrace = *in.ApplyGrace
	}
	if applyGrace && elapsed <= p.GracePeriod {
		c.GraceApplied = true
		return c, nil
	}

	c.BillableHours = BillableHours(elapsed, p)
	c.Subtotal = roundCents(float64(c.BillableHours) * (c.HourlyRate + c.Surcharge))
	return c.WithDiscount(in.Discount), nil
}

// WithDiscount returns the charge with discount applied to its subtotal.
func (c Charge) WithDiscount(discount float64) Charge {
	c.Discount = roundCents(max(discount, 0))
	c.Total = roundCents(max(c.Subtotal-c.Discount, 0))
	return c
}

func surcharge(spot model.Spot, p Policy) float64 {
	var total float64
	for _, f := range types.Features {
		if v, ok := p.SpotSurcharges[f]; ok && spot.HasFeature(f) {
			total += v
		}
	}
	return total
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
