package model

import (
	"errors"
	"strings"

	"github.com/okian/garage/internal/domain/types"
)

// ErrEmptyPlate is returned when a vehicle has no license plate.
var ErrEmptyPlate = errors.New("license plate must not be empty")

// Vehicle describes the car asking for a spot.
type Vehicle struct {
	LicensePlate    string            `json:"license_plate"`
	Type            types.VehicleType `json:"type"`
	RateType        types.RateType    `json:"rate_type,omitempty"`
	Electric        bool              `json:"electric,omitempty"`
	NeedsAccessible bool              `json:"needs_accessible,omitempty"`
}

// NormalizePlate trims and upper-cases a plate so lookups are stable.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// Normalized returns a copy with a normalized plate and canonical vehicle and
// rate types. An empty rate type becomes hourly. Unknown values are kept as
// given so Validate can report them.
func (v Vehicle) Normalized() Vehicle {
	v.LicensePlate = NormalizePlate(v.LicensePlate)
	if vt, err := types.ParseVehicleType(string(v.Type)); err == nil {
		v.Type = vt
	}
	if rt, err := types.ParseRateType(string(v.RateType)); err == nil {
		v.RateType = rt
	}
	return v
}

// Validate checks plate and enumeration fields.
func (v Vehicle) Validate() error {
	if NormalizePlate(v.LicensePlate) == "" {
		return ErrEmptyPlate
	}
	if _, err := types.ParseVehicleType(string(v.Type)); err != nil {
		return err
	}
	if _, err := types.ParseRateType(string(v.RateType)); err != nil {
		return err
	}
	return nil
}
