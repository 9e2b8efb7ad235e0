package gatesim

import (
	"fmt"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Vehicles       int           // Number of vehicles sent through the entry gate
	ExitRatio      float64       // Share of parked vehicles that leave again, 0..1
	DuplicateRatio float64       // Share of events re-sent with the same event id, 0..1
	MaxStay        time.Duration // Upper bound of the simulated stay length
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	SettleTimeout  time.Duration // How long to wait for the gate queue to drain
	Verbose        bool          // Enable verbose logging
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.Vehicles <= 0:
		return fmt.Errorf("%w: vehicles must be positive", ErrInvalidConfig)
	case c.Workers <= 0:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.ExitRatio < 0 || c.ExitRatio > 1:
		return fmt.Errorf("%w: exit ratio must be within [0,1]", ErrInvalidConfig)
	case c.DuplicateRatio < 0 || c.DuplicateRatio > 1:
		return fmt.Errorf("%w: duplicate ratio must be within [0,1]", ErrInvalidConfig)
	case c.MaxStay <= 0:
		return fmt.Errorf("%w: max stay must be positive", ErrInvalidConfig)
	}
	return nil
}

// Event is the wire form of POST /gate-events.
type Event struct {
	EventID         string `json:"event_id"`
	LicensePlate    string `json:"license_plate"`
	VehicleType     string `json:"vehicle_type,omitempty"`
	Electric        bool   `json:"electric,omitempty"`
	NeedsAccessible bool   `json:"needs_accessible,omitempty"`
	Direction       string `json:"direction"`
	TS              string `json:"ts"`
}

// AckResponse represents the response from event submission.
type AckResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Snapshot is the subset of GET /stats the simulator checks.
type Snapshot struct {
	Service struct {
		QueueLength     int   `json:"queueLength"`
		ProcessedEvents int64 `json:"processedEvents"`
	} `json:"service"`
	Assignment struct {
		TotalSpots    int            `json:"total_spots"`
		ByStatus      map[string]int `json:"by_status"`
		OccupancyRate float64        `json:"occupancy_rate"`
	} `json:"assignment"`
	Checkout struct {
		ActiveSessions    int     `json:"active_sessions"`
		CompletedSessions int     `json:"completed_sessions"`
		GraceExits        int     `json:"grace_exits"`
		Revenue           float64 `json:"revenue"`
		AverageMinutes    float64 `json:"average_minutes"`
	} `json:"checkout"`
}

// Counts tallies the outcome of one submission phase.
type Counts struct {
	Submitted int
	Accepted  int
	Duplicate int
	Rejected  int
	Failed    int
}

// Stats holds run statistics.
type Stats struct {
	Entries   Counts
	Exits     Counts
	Before    Snapshot
	After     Snapshot
	Mismatch  []string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}
