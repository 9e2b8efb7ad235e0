// Package types contains the enumerations shared across the garage core.
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when parsing an enumeration value that is not recognised.
var ErrUnknownValue = errors.New("unknown value")

// VehicleType is the size class of a vehicle.
type VehicleType string

// Vehicle size classes.
const (
	VehicleCompact   VehicleType = "compact"
	VehicleStandard  VehicleType = "standard"
	VehicleOversized VehicleType = "oversized"
)

// VehicleTypes lists every vehicle type in ascending size order.
var VehicleTypes = []VehicleType{VehicleCompact, VehicleStandard, VehicleOversized}

// SpotType is the physical class of a parking spot.
type SpotType string

// Spot classes. An EV charging spot is standard-sized.
const (
	SpotCompact    SpotType = "compact"
	SpotStandard   SpotType = "standard"
	SpotOversized  SpotType = "oversized"
	SpotEVCharging SpotType = "ev_charging"
)

// SpotTypes lists every spot type.
var SpotTypes = []SpotType{SpotCompact, SpotStandard, SpotOversized, SpotEVCharging}

// SpotStatus is the occupancy state of a spot.
type SpotStatus string

// Spot states.
const (
	SpotAvailable    SpotStatus = "available"
	SpotOccupied     SpotStatus = "occupied"
	SpotOutOfService SpotStatus = "out_of_service"
)

// SpotStatuses lists every spot status.
var SpotStatuses = []SpotStatus{SpotAvailable, SpotOccupied, SpotOutOfService}

// Feature is an optional amenity attached to a spot.
type Feature string

// Known spot features.
const (
	FeatureEVCharging Feature = "ev_charging"
	FeatureHandicap   Feature = "handicap"
	FeatureCovered    Feature = "covered"
)

// Features lists every known feature.
var Features = []Feature{FeatureEVCharging, FeatureHandicap, FeatureCovered}

// RateType selects which column of the rate table applies to a vehicle.
type RateType string

// Rate plans.
const (
	RateHourly  RateType = "hourly"
	RateDaily   RateType = "daily"
	RateMonthly RateType = "monthly"
)

// RateTypes lists every rate type.
var RateTypes = []RateType{RateHourly, RateDaily, RateMonthly}

// SessionStatus is the lifecycle state of a parking session.
type SessionStatus string

// Session states.
const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// Direction tells whether a gate event is an entry or an exit.
type Direction string

// Gate directions.
const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
)

// ParseVehicleType parses a vehicle type, case-insensitively.
func ParseVehicleType(s string) (VehicleType, error) {
	return parse(s, VehicleTypes, "vehicle type")
}

// ParseSpotType parses a spot type, case-insensitively.
func ParseSpotType(s string) (SpotType, error) {
	return parse(s, SpotTypes, "spot type")
}

// ParseSpotStatus parses a spot status, case-insensitively.
func ParseSpotStatus(s string) (SpotStatus, error) {
	return parse(s, SpotStatuses, "spot status")
}

// ParseFeature parses a spot feature, case-insensitively.
func ParseFeature(s string) (Feature, error) {
	return parse(s, Features, "feature")
}

// ParseRateType parses a rate type. An empty string yields RateHourly.
func ParseRateType(s string) (RateType, error) {
	if strings.TrimSpace(s) == "" {
		return RateHourly, nil
	}
	return parse(s, RateTypes, "rate type")
}

// ParseDirection parses a gate direction, case-insensitively.
func ParseDirection(s string) (Direction, error) {
	return parse(s, []Direction{DirectionEntry, DirectionExit}, "direction")
}

func parse[T ~string](s string, known []T, what string) (T, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, k := range known {
		if string(k) == v {
			return k, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%s %q: %w", what, s, ErrUnknownValue)
}
