package assignment

import (
	"errors"
	"fmt"
)

// ErrInvalidPreferences is returned when a preference weight is out of range.
var ErrInvalidPreferences = errors.New("invalid assignment preferences")

// Default preference weights.
const (
	defaultFloorWeight          = 10
	defaultMaxFloorPenalty      = 50
	defaultBayBonus             = 5
	defaultSpotNumberWeight     = 0.01
	defaultExactTypeMatchBonus  = 20
	defaultEVChargingBonus      = 25
	defaultHandicapPenalty      = 30
	defaultAccessibleMatchBonus = 40
)

// Preferences weights the terms of the spot score.
type Preferences struct {
	PreferLowerFloors    bool            `json:"prefer_lower_floors"`
	FloorWeight          float64         `json:"floor_weight"`           // penalty per floor above ground
	MaxFloorPenalty      float64         `json:"max_floor_penalty"`      // cap on the floor penalty
	PreferredBays        map[int]float64 `json:"preferred_bays"`         // bay number -> weight
	BayBonus             float64         `json:"bay_bonus"`              // multiplied by the bay weight
	SpotNumberWeight     float64         `json:"spot_number_weight"`     // small tie-breaker per spot number
	ExactTypeMatchBonus  float64         `json:"exact_type_match_bonus"` // spot sized exactly for the vehicle
	EVChargingBonus      float64         `json:"ev_charging_bonus"`      // only for electric vehicles
	HandicapPenalty      float64         `json:"handicap_penalty"`       // accessible spot taken without need
	AccessibleMatchBonus float64         `json:"accessible_match_bonus"` // accessible spot for a vehicle that needs it
}

// DefaultPreferences returns the weights used when nothing is configured.
func DefaultPreferences() Preferences {
	return Preferences{
		PreferLowerFloors:    true,
		FloorWeight:          defaultFloorWeight,
		MaxFloorPenalty:      defaultMaxFloorPenalty,
		PreferredBays:        map[int]float64{},
		BayBonus:             defaultBayBonus,
		SpotNumberWeight:     defaultSpotNumberWeight,
		ExactTypeMatchBonus:  defaultExactTypeMatchBonus,
		EVChargingBonus:      defaultEVChargingBonus,
		HandicapPenalty:      defaultHandicapPenalty,
		AccessibleMatchBonus: defaultAccessibleMatchBonus,
	}
}

// Validate rejects negative weights and caps.
func (p Preferences) Validate() error {
	weights := []struct {
		name  string
		value float64
	}{
		{"floor_weight", p.FloorWeight},
		{"max_floor_penalty", p.MaxFloorPenalty},
		{"bay_bonus", p.BayBonus},
		{"spot_number_weight", p.SpotNumberWeight},
		{"exact_type_match_bonus", p.ExactTypeMatchBonus},
		{"ev_charging_bonus", p.EVChargingBonus},
		{"handicap_penalty", p.HandicapPenalty},
		{"accessible_match_bonus", p.AccessibleMatchBonus},
	}
	for _, w := range weights {
		if w.value < 0 {
			return fmt.Errorf("%s must not be negative, got %v: %w", w.name, w.value, ErrInvalidPreferences)
		}
	}
	for bay, weight := range p.PreferredBays {
		if weight < 0 {
			return fmt.Errorf("preferred bay %d weight must not be negative, got %v: %w", bay, weight, ErrInvalidPreferences)
		}
	}
	return nil
}

// Clone returns a copy that does not share the preferred bay map.
func (p Preferences) Clone() Preferences {
	bays := make(map[int]float64, len(p.PreferredBays))
	for bay, weight := range p.PreferredBays {
		bays[bay] = weight
	}
	p.PreferredBays = bays
	return p
}
