// Package assignment picks the best available spot for a vehicle.
//
// Everything here is a pure function over a snapshot of spots. Callers are
// responsible for holding a consistent view of the inventory while a choice is
// applied.
package assignment

import (
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// compatibility lists the spot types each vehicle type physically fits into.
// Smaller vehicles may take larger spots, never the reverse.
var compatibility = map[types.VehicleType][]types.SpotType{
	types.VehicleCompact:   {types.SpotCompact, types.SpotStandard, types.SpotOversized},
	types.VehicleStandard:  {types.SpotStandard, types.SpotOversized},
	types.VehicleOversized: {types.SpotOversized},
}

// natural is the spot type sized exactly for each vehicle type.
var natural = map[types.VehicleType]types.SpotType{
	types.VehicleCompact:   types.SpotCompact,
	types.VehicleStandard:  types.SpotStandard,
	types.VehicleOversized: types.SpotOversized,
}

// Request describes the vehicle a spot is being chosen for.
type Request struct {
	VehicleType     types.VehicleType `json:"vehicle_type"`
	Electric        bool              `json:"electric"`
	NeedsAccessible bool              `json:"needs_accessible"`
}

// RequestFor builds the assignment request for a vehicle.
func RequestFor(v model.Vehicle) Request {
	return Request{
		VehicleType:     v.Type,
		Electric:        v.Electric,
		NeedsAccessible: v.NeedsAccessible,
	}
}

// CompatibleSpotTypes returns the static list of spot types a vehicle type fits.
// Unknown vehicle types fit nothing.
func CompatibleSpotTypes(vt types.VehicleType) []types.SpotType {
	return append([]types.SpotType(nil), compatibility[vt]...)
}

// IsCompatible reports whether a vehicle type fits a spot type.
func IsCompatible(vt types.VehicleType, st types.SpotType) bool {
	for _, t := range compatibility[vt] {
		if t == st {
			return true
		}
	}
	return false
}

// NaturalSpotType returns the spot type sized exactly for vt.
func NaturalSpotType(vt types.VehicleType) (types.SpotType, bool) {
	st, ok := natural[vt]
	return st, ok
}

// CompatibleSpotTypesFor extends the static list with ev_charging spots for
// electric vehicles that fit a standard spot.
func CompatibleSpotTypesFor(req Request) []types.SpotType {
	out := CompatibleSpotTypes(req.VehicleType)
	if req.Electric && IsCompatible(req.VehicleType, types.SpotStandard) {
		out = append(out, types.SpotEVCharging)
	}
	return out
}

// Accepts reports whether the requesting vehicle may be placed in a spot of type st.
func (r Request) Accepts(st types.SpotType) bool {
	if st == types.SpotEVCharging {
		return r.Electric && IsCompatible(r.VehicleType, types.SpotStandard)
	}
	return IsCompatible(r.VehicleType, st)
}
