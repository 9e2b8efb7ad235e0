package lifecycle

import (
	"context"
	"math"

	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/types"
)

// FloorStats counts spots on one floor.
type FloorStats struct {
	Total        int `json:"total"`
	Available    int `json:"available"`
	Occupied     int `json:"occupied"`
	OutOfService int `json:"out_of_service"`
}

// AssignmentStats describes the inventory.
type AssignmentStats struct {
	TotalSpots    int                                          `json:"total_spots"`
	ByStatus      map[types.SpotStatus]int                     `json:"by_status"`
	BySpotType    map[types.SpotType]int                       `json:"by_spot_type"`
	ByFloor       map[int]FloorStats                           `json:"by_floor"`
	OccupancyRate float64                                      `json:"occupancy_rate"`
	Availability  map[types.VehicleType]assignment.Availability `json:"availability"`
}

// CheckoutStats describes sessions and revenue.
type CheckoutStats struct {
	ActiveSessions    int     `json:"active_sessions"`
	CompletedSessions int     `json:"completed_sessions"`
	ForcedCheckouts   int     `json:"forced_checkouts"`
	GraceExits        int     `json:"grace_exits"`
	Revenue           float64 `json:"revenue"`
	AverageMinutes    float64 `json:"average_minutes"`
}

// AssignmentStats aggregates the inventory by status, type and floor.
func (c *Coordinator) AssignmentStats(ctx context.Context) (AssignmentStats, error) {
	st := AssignmentStats{
		ByStatus:     make(map[types.SpotStatus]int),
		BySpotType:   make(map[types.SpotType]int),
		ByFloor:      make(map[int]FloorStats),
		Availability: make(map[types.VehicleType]assignment.Availability),
	}
	err := c.store.View(ctx, func(r Reader) error {
		spots, err := r.Spots()
		if err != nil {
			return err
		}
		for _, s := range spots {
			st.TotalSpots++
			st.ByStatus[s.Status]++
			st.BySpotType[s.Type]++
			f := st.ByFloor[s.ID.Floor]
			f.Total++
			switch s.Status {
			case types.SpotAvailable:
				f.Available++
			case types.SpotOccupied:
				f.Occupied++
			case types.SpotOutOfService:
				f.OutOfService++
			}
			st.ByFloor[s.ID.Floor] = f
		}
		for _, vt := range types.VehicleTypes {
			st.Availability[vt] = assignment.AvailabilityOf(spots, vt)
		}
		return nil
	})
	if err != nil {
		return AssignmentStats{}, asError(OpAssignmentStats, "", err)
	}
	if st.TotalSpots > 0 {
		st.OccupancyRate = float64(st.ByStatus[types.SpotOccupied]) / float64(st.TotalSpots)
	}
	return st, nil
}

// CheckoutStats aggregates active sessions and the running checkout totals.
// Trimmed history still counts.
func (c *Coordinator) CheckoutStats(ctx context.Context) (CheckoutStats, error) {
	var st CheckoutStats
	err := c.store.View(ctx, func(r Reader) error {
		active, err := r.ActiveSessions()
		if err != nil {
			return err
		}
		totals, err := r.CheckoutTotals()
		if err != nil {
			return err
		}
		st.ActiveSessions = len(active)
		st.CompletedSessions = totals.Completed
		st.ForcedCheckouts = totals.Forced
		st.GraceExits = totals.GraceExits
		st.Revenue = totals.Revenue
		if totals.Completed > 0 {
			st.AverageMinutes = float64(totals.Minutes) / float64(totals.Completed)
		}
		return nil
	})
	if err != nil {
		return CheckoutStats{}, asError(OpCheckoutStats, "", err)
	}
	st.Revenue = math.Round(st.Revenue*100) / 100
	return st, nil
}
