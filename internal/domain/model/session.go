package model

import (
	"time"

	"github.com/okian/garage/internal/domain/types"
)

// DurationBreakdown splits an elapsed time into whole hours and remaining minutes.
type DurationBreakdown struct {
	Hours        int `json:"hours"`
	Minutes      int `json:"minutes"`
	TotalMinutes int `json:"total_minutes"`
}

// NewDurationBreakdown truncates d to whole minutes and splits it.
func NewDurationBreakdown(d time.Duration) DurationBreakdown {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Minute)
	return DurationBreakdown{
		Hours:        total / 60,
		Minutes:      total % 60,
		TotalMinutes: total,
	}
}

// Session is one stay of one vehicle in one spot.
type Session struct {
	ID           string              `json:"id"`
	Vehicle      Vehicle             `json:"vehicle"`
	SpotID       SpotID              `json:"spot_id"`
	CheckInTime  time.Time           `json:"check_in_time"`
	CheckOutTime *time.Time          `json:"check_out_time,omitempty"`
	Status       types.SessionStatus `json:"status"`
	Duration     DurationBreakdown   `json:"duration"`
	AmountDue    float64             `json:"amount_due"`
	GraceApplied bool                `json:"grace_applied,omitempty"`
	Forced       bool                `json:"forced,omitempty"`
	ForceReason  string              `json:"force_reason,omitempty"`
}

// Active reports whether the session is still open.
func (s Session) Active() bool {
	return s.Status == types.SessionActive
}

// Plate is shorthand for the session's normalized license plate.
func (s Session) Plate() string {
	return s.Vehicle.LicensePlate
}

// Close returns the completed copy of the session.
func (s Session) Close(at time.Time, duration DurationBreakdown, amount float64) Session {
	t := at
	s.CheckOutTime = &t
	s.Status = types.SessionCompleted
	s.Duration = duration
	s.AmountDue = amount
	return s
}
