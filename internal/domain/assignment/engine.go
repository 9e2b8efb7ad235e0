package assignment

import (
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// Availability summarizes the available spots a vehicle could take.
type Availability struct {
	VehicleType  types.VehicleType      `json:"vehicle_type"`
	Total        int                    `json:"total"`
	BySpotType   map[types.SpotType]int `json:"by_spot_type"`
	HasAvailable bool                   `json:"has_available"`
}

// Simulation is the outcome of a dry-run assignment.
type Simulation struct {
	Request         Request          `json:"request"`
	CompatibleTypes []types.SpotType `json:"compatible_types"`
	Availability    Availability     `json:"availability"`
	Spot            *model.Spot      `json:"spot,omitempty"`
	Score           float64          `json:"score"`
	Breakdown       Breakdown        `json:"breakdown"`
	CandidateCount  int              `json:"candidate_count"`
}

// Candidates returns the available spots req accepts, ordered by id.
func Candidates(spots []model.Spot, req Request) []model.Spot {
	out := make([]model.Spot, 0, len(spots))
	for _, s := range spots {
		if s.Available() && req.Accepts(s.Type) {
			out = append(out, s)
		}
	}
	model.SortSpots(out)
	return out
}

// FindBest returns the highest scoring available spot for req. Equal scores go
// to the lowest (floor, bay, number). The second result is false when no
// compatible spot is available.
func FindBest(spots []model.Spot, req Request, prefs Preferences) (model.Spot, bool) {
	best, _, ok := pick(Candidates(spots, req), req, prefs)
	return best, ok
}

func pick(candidates []model.Spot, req Request, prefs Preferences) (model.Spot, Breakdown, bool) {
	if len(candidates) == 0 {
		return model.Spot{}, Breakdown{}, false
	}
	best := candidates[0]
	bestScore := ScoreBreakdown(best, req, prefs)
	// candidates are sorted by id, so strict comparison keeps the lowest id on ties
	for _, s := range candidates[1:] {
		if b := ScoreBreakdown(s, req, prefs); b.Total > bestScore.Total {
			best, bestScore = s, b
		}
	}
	return best, bestScore, true
}

// AvailabilityOf counts the available spots of each type that vt fits.
func AvailabilityOf(spots []model.Spot, vt types.VehicleType) Availability {
	return AvailabilityFor(spots, Request{VehicleType: vt})
}

// AvailabilityFor counts the available spots of each type req accepts.
func AvailabilityFor(spots []model.Spot, req Request) Availability {
	a := Availability{
		VehicleType: req.VehicleType,
		BySpotType:  make(map[types.SpotType]int),
	}
	for _, st := range CompatibleSpotTypesFor(req) {
		a.BySpotType[st] = 0
	}
	for _, s := range spots {
		if s.Available() && req.Accepts(s.Type) {
			a.BySpotType[s.Type]++
			a.Total++
		}
	}
	a.HasAvailable = a.Total > 0
	return a
}

// Simulate runs the assignment without applying it. The chosen spot is always
// the one FindBest returns for the same snapshot.
func Simulate(spots []model.Spot, req Request, prefs Preferences) Simulation {
	candidates := Candidates(spots, req)
	sim := Simulation{
		Request:         req,
		CompatibleTypes: CompatibleSpotTypesFor(req),
		Availability:    AvailabilityFor(spots, req),
		CandidateCount:  len(candidates),
	}
	if best, b, ok := pick(candidates, req, prefs); ok {
		chosen := best.Clone()
		sim.Spot = &chosen
		sim.Score = b.Total
		sim.Breakdown = b
	}
	return sim
}
