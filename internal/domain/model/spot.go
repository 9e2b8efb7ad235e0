// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"sort"

	"github.com/okian/garage/internal/domain/types"
)

// ErrInvalidSpot is returned when a spot violates its occupancy invariant.
var ErrInvalidSpot = errors.New("invalid spot")

// SpotID identifies a spot by its place in the facility.
type SpotID struct {
	Floor  int `json:"floor"`
	Bay    int `json:"bay"`
	Number int `json:"number"`
}

// String renders the id as F<floor>-B<bay>-S<number>.
func (id SpotID) String() string {
	return fmt.Sprintf("F%d-B%d-S%d", id.Floor, id.Bay, id.Number)
}

// Less orders ids by floor, then bay, then spot number.
func (id SpotID) Less(other SpotID) bool {
	if id.Floor != other.Floor {
		return id.Floor < other.Floor
	}
	if id.Bay != other.Bay {
		return id.Bay < other.Bay
	}
	return id.Number < other.Number
}

// ParseSpotID parses the text form produced by SpotID.String.
func ParseSpotID(s string) (SpotID, error) {
	var id SpotID
	if _, err := fmt.Sscanf(s, "F%d-B%d-S%d", &id.Floor, &id.Bay, &id.Number); err != nil {
		return SpotID{}, fmt.Errorf("parse spot id %q: %w", s, err)
	}
	if id.String() != s {
		return SpotID{}, fmt.Errorf("parse spot id %q: trailing characters", s)
	}
	return id, nil
}

// Spot is a single parking position.
type Spot struct {
	ID             SpotID           `json:"id"`
	Type           types.SpotType   `json:"type"`
	Status         types.SpotStatus `json:"status"`
	Features       []types.Feature  `json:"features,omitempty"`
	CurrentVehicle *string          `json:"current_vehicle,omitempty"`
}

// HasFeature reports whether the spot offers f. An ev_charging spot always has the
// ev_charging feature.
func (s Spot) HasFeature(f types.Feature) bool {
	if f == types.FeatureEVCharging && s.Type == types.SpotEVCharging {
		return true
	}
	for _, have := range s.Features {
		if have == f {
			return true
		}
	}
	return false
}

// Available reports whether the spot can take a vehicle right now.
func (s Spot) Available() bool {
	return s.Status == types.SpotAvailable
}

// Validate checks that CurrentVehicle is set iff the spot is occupied.
func (s Spot) Validate() error {
	occupied := s.Status == types.SpotOccupied
	switch {
	case occupied && s.CurrentVehicle == nil:
		return fmt.Errorf("%s: occupied without a vehicle: %w", s.ID, ErrInvalidSpot)
	case !occupied && s.CurrentVehicle != nil:
		return fmt.Errorf("%s: %s but holds %s: %w", s.ID, s.Status, *s.CurrentVehicle, ErrInvalidSpot)
	}
	return nil
}

// Occupy returns a copy of the spot holding plate.
func (s Spot) Occupy(plate string) Spot {
	p := plate
	s.Status = types.SpotOccupied
	s.CurrentVehicle = &p
	return s
}

// Release returns a copy of the spot with no vehicle and status available.
func (s Spot) Release() Spot {
	s.Status = types.SpotAvailable
	s.CurrentVehicle = nil
	return s
}

// Clone returns a deep copy so callers cannot alias store state.
func (s Spot) Clone() Spot {
	if s.Features != nil {
		s.Features = append([]types.Feature(nil), s.Features...)
	}
	if s.CurrentVehicle != nil {
		p := *s.CurrentVehicle
		s.CurrentVehicle = &p
	}
	return s
}

// SortSpots orders spots by id in place.
func SortSpots(spots []Spot) {
	sort.Slice(spots, func(i, j int) bool { return spots[i].ID.Less(spots[j].ID) })
}
