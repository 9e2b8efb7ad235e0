package assignment

import (
	"math"

	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// Breakdown lists every term of a spot score.
type Breakdown struct {
	Floor         float64 `json:"floor"`
	Bay           float64 `json:"bay"`
	SpotNumber    float64 `json:"spot_number"`
	ExactType     float64 `json:"exact_type"`
	EVCharging    float64 `json:"ev_charging"`
	Accessibility float64 `json:"accessibility"`
	Total         float64 `json:"total"`
}

// Score rates how good spot is for req. Only relative ordering is meaningful.
func Score(spot model.Spot, req Request, prefs Preferences) float64 {
	return ScoreBreakdown(spot, req, prefs).Total
}

// ScoreBreakdown computes Score and keeps each term.
func ScoreBreakdown(spot model.Spot, req Request, prefs Preferences) Breakdown {
	var b Breakdown

	if prefs.PreferLowerFloors {
		floor := float64(max(spot.ID.Floor, 0))
		b.Floor = -math.Min(prefs.FloorWeight*floor, prefs.MaxFloorPenalty)
	}

	if weight, ok := prefs.PreferredBays[spot.ID.Bay]; ok {
		b.Bay = prefs.BayBonus * weight
	}

	b.SpotNumber = -prefs.SpotNumberWeight * float64(spot.ID.Number)

	if want, ok := natural[req.VehicleType]; ok && spot.Type == want {
		b.ExactType = prefs.ExactTypeMatchBonus
	}

	// A charger is worth nothing to a vehicle that cannot plug in.
	if req.Electric && spot.HasFeature(types.FeatureEVCharging) {
		b.EVCharging = prefs.EVChargingBonus
	}

	if spot.HasFeature(types.FeatureHandicap) {
		if req.NeedsAccessible {
			b.Accessibility = prefs.AccessibleMatchBonus
		} else {
			b.Accessibility = -prefs.HandicapPenalty
		}
	}

	b.Total = b.Floor + b.Bay + b.SpotNumber + b.ExactType + b.EVCharging + b.Accessibility
	return b
}
