package lifecycle

import (
	"context"

	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/billing"
	"github.com/okian/garage/internal/domain/model"
)

// Reader is a consistent read view of spots and sessions.
type Reader interface {
	// Spots returns every spot, ordered by id.
	Spots() ([]model.Spot, error)
	// Spot returns one spot or ErrSpotNotFound.
	Spot(id model.SpotID) (model.Spot, error)
	// ActiveSession returns the open session for a normalized plate.
	ActiveSession(plate string) (model.Session, bool, error)
	// ActiveSessions returns all open sessions.
	ActiveSessions() ([]model.Session, error)
	// CompletedSessions returns the retained closed sessions, oldest checkout
	// first. Stores may trim old history.
	CompletedSessions() ([]model.Session, error)
	// CheckoutTotals returns totals over every session ever closed, including
	// trimmed history.
	CheckoutTotals() (CheckoutTotals, error)
}

// CheckoutTotals are running totals over closed sessions.
type CheckoutTotals struct {
	Completed  int
	Forced     int
	GraceExits int
	Revenue    float64
	Minutes    int
}

// Add counts one closed session.
func (t *CheckoutTotals) Add(s model.Session) {
	t.Completed++
	if s.Forced {
		t.Forced++
	}
	if s.GraceApplied {
		t.GraceExits++
	}
	t.Revenue += s.AmountDue
	t.Minutes += s.Duration.TotalMinutes
}

// Tx is a read-write view. Writes become visible to other callers only when
// the enclosing Update returns nil.
type Tx interface {
	Reader
	// PutSpot replaces an existing spot.
	PutSpot(spot model.Spot) error
	// CreateSession records a new active session. Fails with ErrSessionExists
	// if the plate already has one.
	CreateSession(s model.Session) error
	// CloseSession replaces an active session with its completed form. Fails
	// with ErrSessionNotActive if the session is not open.
	CloseSession(s model.Session) error
}

// Store holds inventory and session state. Update calls are serialized; a
// failed fn leaves the state untouched.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Tx) error) error
}

// Policy is the configuration snapshot used for one operation.
type Policy struct {
	Preferences assignment.Preferences
	Rates       billing.RateTable
	Billing     billing.Policy
}

// DefaultPolicy combines the default preferences, rates and billing rules.
func DefaultPolicy() Policy {
	return Policy{
		Preferences: assignment.DefaultPreferences(),
		Rates:       billing.DefaultRates(),
		Billing:     billing.DefaultPolicy(),
	}
}

// Validate checks every part of the policy.
func (p Policy) Validate() error {
	if err := p.Preferences.Validate(); err != nil {
		return err
	}
	if err := p.Rates.Validate(); err != nil {
		return err
	}
	return p.Billing.Validate()
}

// PolicySource supplies the current policy. Implementations may swap it at any
// time; each call must return a complete, consistent snapshot.
type PolicySource interface {
	Policy() Policy
}

// StaticPolicy is a PolicySource that never changes.
type StaticPolicy Policy

// Policy implements PolicySource.
func (p StaticPolicy) Policy() Policy { return Policy(p) }
