// Package lifecycle moves vehicles between absent and parked.
//
// The Coordinator is the only writer of spot occupancy and sessions. It asks
// the assignment engine for a spot on check-in and the billing engine for a
// charge on checkout, and applies both decisions inside one store transaction.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/billing"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// Operation names used in errors, logs and metrics.
const (
	OpCheckIn            = "checkin"
	OpCheckOut           = "checkout"
	OpForceCheckout      = "force_checkout"
	OpSimulateAssignment = "simulate_assignment"
	OpSimulateCheckout   = "simulate_checkout"
	OpReadyForCheckout   = "ready_for_checkout"
	OpAvailability       = "availability"
	OpSetSpotStatus      = "set_spot_status"
	OpSession            = "session"
	OpSpots              = "spots"
	OpAssignmentStats    = "assignment_stats"
	OpCheckoutStats      = "checkout_stats"
)

// CheckInResult is a successful check-in.
type CheckInResult struct {
	Session model.Session `json:"session"`
	Spot    model.Spot    `json:"spot"`
	Score   float64       `json:"score"`
}

// CheckoutOptions tunes a checkout. Zero values use the clock and the policy.
type CheckoutOptions struct {
	CheckOutTime     time.Time
	ApplyGracePeriod *bool
	Discount         float64
}

// CheckoutResult is a completed checkout.
type CheckoutResult struct {
	Session model.Session  `json:"session"`
	Spot    model.Spot     `json:"spot"`
	Charge  billing.Charge `json:"charge"`
	Forced  bool           `json:"forced"`
	Reason  string         `json:"reason,omitempty"`
}

// CheckoutEstimate is what a checkout would charge, without applying it.
type CheckoutEstimate struct {
	SessionID    string         `json:"session_id"`
	Plate        string         `json:"license_plate"`
	SpotID       model.SpotID   `json:"spot_id"`
	CheckInTime  time.Time      `json:"check_in_time"`
	CheckOutTime time.Time      `json:"check_out_time"`
	Charge       billing.Charge `json:"charge"`
}

// ReadySession is an active session with a live estimate.
type ReadySession struct {
	Session  model.Session    `json:"session"`
	Estimate CheckoutEstimate `json:"estimate"`
}

// Coordinator runs check-ins and checkouts against a Store.
type Coordinator struct {
	store      Store
	policy     PolicySource
	now        func() time.Time
	newID      func() string
	discounter Discounter
}

// New creates a coordinator over store using policy for every decision.
func New(store Store, policy PolicySource, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		policy: policy,
		now:    time.Now,
		newID:  defaultID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckIn assigns the best spot to v and opens a session now.
func (c *Coordinator) CheckIn(ctx context.Context, v model.Vehicle) (CheckInResult, error) {
	return c.CheckInAt(ctx, v, time.Time{})
}

// CheckInAt is CheckIn with the session opened at at. A zero at means now.
func (c *Coordinator) CheckInAt(ctx context.Context, v model.Vehicle, at time.Time) (CheckInResult, error) {
	if at.IsZero() {
		at = c.now()
	}
	v = v.Normalized()
	if err := v.Validate(); err != nil {
		return CheckInResult{}, newError(OpCheckIn, v.LicensePlate, ErrInvalidInput, err)
	}
	policy := c.policy.Policy()
	req := assignment.RequestFor(v)

	var res CheckInResult
	err := c.store.Update(ctx, func(tx Tx) error {
		_, parked, err := tx.ActiveSession(v.LicensePlate)
		if err != nil {
			return err
		}
		if parked {
			return newError(OpCheckIn, v.LicensePlate, ErrAlreadyParked, nil)
		}

		spots, err := tx.Spots()
		if err != nil {
			return err
		}
		best, ok := assignment.FindBest(spots, req, policy.Preferences)
		if !ok {
			return newError(OpCheckIn, v.LicensePlate, ErrNoAvailableSpot, nil)
		}

		occupied := best.Occupy(v.LicensePlate)
		if err := tx.PutSpot(occupied); err != nil {
			return err
		}
		session := model.Session{
			ID:          c.newID(),
			Vehicle:     v,
			SpotID:      occupied.ID,
			CheckInTime: at,
			Status:      types.SessionActive,
		}
		if err := tx.CreateSession(session); err != nil {
			if errors.Is(err, ErrSessionExists) {
				return newError(OpCheckIn, v.LicensePlate, ErrAlreadyParked, err)
			}
			return err
		}

		res = CheckInResult{
			Session: session,
			Spot:    occupied.Clone(),
			Score:   assignment.Score(best, req, policy.Preferences),
		}
		return nil
	})
	if err != nil {
		return CheckInResult{}, asError(OpCheckIn, v.LicensePlate, err)
	}
	return res, nil
}

// CheckOut bills the active session for plate, closes it and frees its spot.
func (c *Coordinator) CheckOut(ctx context.Context, plate string, opts CheckoutOptions) (CheckoutResult, error) {
	return c.checkout(ctx, OpCheckOut, plate, opts, "")
}

// ForceCheckout checks plate out now even if its time data is inconsistent.
// reason is recorded on the closed session.
func (c *Coordinator) ForceCheckout(ctx context.Context, plate, reason string) (CheckoutResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return CheckoutResult{}, newError(OpForceCheckout, model.NormalizePlate(plate), ErrInvalidInput,
			errors.New("reason must not be empty"))
	}
	return c.checkout(ctx, OpForceCheckout, plate, CheckoutOptions{}, reason)
}

func (c *Coordinator) checkout(ctx context.Context, op, plate string, opts CheckoutOptions, reason string) (CheckoutResult, error) {
	plate = model.NormalizePlate(plate)
	if plate == "" {
		return CheckoutResult{}, newError(op, plate, ErrInvalidInput, model.ErrEmptyPlate)
	}
	forced := reason != ""
	at := opts.CheckOutTime
	if at.IsZero() {
		at = c.now()
	}
	policy := c.policy.Policy()

	var res CheckoutResult
	err := c.store.Update(ctx, func(tx Tx) error {
		session, spot, err := activeWithSpot(tx, op, plate)
		if err != nil {
			return err
		}
		if forced && at.Before(session.CheckInTime) {
			at = session.CheckInTime
		}

		charge, err := c.price(ctx, session, spot, at, opts, policy, forced)
		if err != nil {
			return newError(op, plate, chargeKind(err), err)
		}

		closed := session.Close(at, charge.Duration, charge.Total)
		closed.GraceApplied = charge.GraceApplied
		closed.Forced = forced
		closed.ForceReason = reason
		if err := tx.CloseSession(closed); err != nil {
			if errors.Is(err, ErrSessionNotActive) {
				return newError(op, plate, ErrVehicleNotFound, err)
			}
			return err
		}
		released := spot.Release()
		if err := tx.PutSpot(released); err != nil {
			return err
		}

		res = CheckoutResult{Session: closed, Spot: released, Charge: charge, Forced: forced, Reason: reason}
		return nil
	})
	if err != nil {
		return CheckoutResult{}, asError(op, plate, err)
	}
	return res, nil
}

// SimulateAssignment reports the spot CheckIn would pick right now.
func (c *Coordinator) SimulateAssignment(ctx context.Context, req assignment.Request) (assignment.Simulation, error) {
	vt, err := types.ParseVehicleType(string(req.VehicleType))
	if err != nil {
		return assignment.Simulation{}, newError(OpSimulateAssignment, "", ErrInvalidInput, err)
	}
	req.VehicleType = vt
	policy := c.policy.Policy()

	var sim assignment.Simulation
	err = c.store.View(ctx, func(r Reader) error {
		spots, err := r.Spots()
		if err != nil {
			return err
		}
		sim = assignment.Simulate(spots, req, policy.Preferences)
		return nil
	})
	if err != nil {
		return assignment.Simulation{}, asError(OpSimulateAssignment, "", err)
	}
	return sim, nil
}

// SimulateCheckout computes what CheckOut would charge with the same options.
// Every failure is reported as ErrSimulation wrapping the original error.
func (c *Coordinator) SimulateCheckout(ctx context.Context, plate string, opts CheckoutOptions) (CheckoutEstimate, error) {
	plate = model.NormalizePlate(plate)
	at := opts.CheckOutTime
	if at.IsZero() {
		at = c.now()
	}
	policy := c.policy.Policy()

	var est CheckoutEstimate
	err := c.store.View(ctx, func(r Reader) error {
		if plate == "" {
			return newError(OpSimulateCheckout, plate, ErrInvalidInput, model.ErrEmptyPlate)
		}
		session, spot, err := activeWithSpot(r, OpSimulateCheckout, plate)
		if err != nil {
			return err
		}
		est, err = c.estimate(ctx, session, spot, at, opts, policy, false)
		if err != nil {
			return newError(OpSimulateCheckout, plate, chargeKind(err), err)
		}
		return nil
	})
	if err != nil {
		return CheckoutEstimate{}, newError(OpSimulateCheckout, plate, ErrSimulation, err)
	}
	return est, nil
}

// ReadyForCheckout lists active sessions parked longer than minMinutes, oldest
// first, each with an estimate at the current time.
func (c *Coordinator) ReadyForCheckout(ctx context.Context, minMinutes int) ([]ReadySession, error) {
	if minMinutes < 0 {
		return nil, newError(OpReadyForCheckout, "", ErrInvalidInput, fmt.Errorf("min minutes %d is negative", minMinutes))
	}
	now := c.now()
	policy := c.policy.Policy()

	var out []ReadySession
	err := c.store.View(ctx, func(r Reader) error {
		sessions, err := r.ActiveSessions()
		if err != nil {
			return err
		}
		sort.Slice(sessions, func(i, j int) bool {
			if !sessions[i].CheckInTime.Equal(sessions[j].CheckInTime) {
				return sessions[i].CheckInTime.Before(sessions[j].CheckInTime)
			}
			return sessions[i].Plate() < sessions[j].Plate()
		})

		out = make([]ReadySession, 0, len(sessions))
		for _, s := range sessions {
			if now.Sub(s.CheckInTime) <= time.Duration(minMinutes)*time.Minute {
				continue
			}
			spot, err := r.Spot(s.SpotID)
			if err != nil {
				return err
			}
			est, err := c.estimate(ctx, s, spot, now, CheckoutOptions{}, policy, true)
			if err != nil {
				return err
			}
			out = append(out, ReadySession{Session: s, Estimate: est})
		}
		return nil
	})
	if err != nil {
		return nil, asError(OpReadyForCheckout, "", err)
	}
	return out, nil
}

// Availability summarizes the spots a vehicle type could take right now.
func (c *Coordinator) Availability(ctx context.Context, vt types.VehicleType) (assignment.Availability, error) {
	vt, err := types.ParseVehicleType(string(vt))
	if err != nil {
		return assignment.Availability{}, newError(OpAvailability, "", ErrInvalidInput, err)
	}
	var a assignment.Availability
	err = c.store.View(ctx, func(r Reader) error {
		spots, err := r.Spots()
		if err != nil {
			return err
		}
		a = assignment.AvailabilityOf(spots, vt)
		return nil
	})
	if err != nil {
		return assignment.Availability{}, asError(OpAvailability, "", err)
	}
	return a, nil
}

// SetSpotStatus takes a free spot out of service or brings it back. Occupied
// spots cannot be changed.
func (c *Coordinator) SetSpotStatus(ctx context.Context, id model.SpotID, status types.SpotStatus) (model.Spot, error) {
	if status != types.SpotAvailable && status != types.SpotOutOfService {
		return model.Spot{}, newError(OpSetSpotStatus, "", ErrInvalidInput,
			fmt.Errorf("status %q cannot be set directly", status))
	}
	var out model.Spot
	err := c.store.Update(ctx, func(tx Tx) error {
		spot, err := tx.Spot(id)
		if err != nil {
			if errors.Is(err, ErrSpotNotFound) {
				return newError(OpSetSpotStatus, "", ErrInvalidInput, err)
			}
			return err
		}
		if spot.Status == types.SpotOccupied {
			return newError(OpSetSpotStatus, "", ErrInvalidInput, fmt.Errorf("%s: %w", id, ErrSpotOccupied))
		}
		spot.Status = status
		if err := tx.PutSpot(spot); err != nil {
			return err
		}
		out = spot.Clone()
		return nil
	})
	if err != nil {
		return model.Spot{}, asError(OpSetSpotStatus, "", err)
	}
	return out, nil
}

// Session returns the active session for plate.
func (c *Coordinator) Session(ctx context.Context, plate string) (model.Session, error) {
	plate = model.NormalizePlate(plate)
	var out model.Session
	err := c.store.View(ctx, func(r Reader) error {
		s, ok, err := r.ActiveSession(plate)
		if err != nil {
			return err
		}
		if !ok {
			return newError(OpSession, plate, ErrVehicleNotFound, nil)
		}
		out = s
		return nil
	})
	if err != nil {
		return model.Session{}, asError(OpSession, plate, err)
	}
	return out, nil
}

// Spots returns the inventory ordered by id.
func (c *Coordinator) Spots(ctx context.Context) ([]model.Spot, error) {
	var out []model.Spot
	err := c.store.View(ctx, func(r Reader) error {
		var err error
		out, err = r.Spots()
		return err
	})
	if err != nil {
		return nil, asError(OpSpots, "", err)
	}
	return out, nil
}

func (c *Coordinator) estimate(ctx context.Context, s model.Session, spot model.Spot, at time.Time,
	opts CheckoutOptions, policy Policy, allowNonPositive bool,
) (CheckoutEstimate, error) {
	charge, err := c.price(ctx, s, spot, at, opts, policy, allowNonPositive)
	if err != nil {
		return CheckoutEstimate{}, err
	}
	return CheckoutEstimate{
		SessionID:    s.ID,
		Plate:        s.Plate(),
		SpotID:       s.SpotID,
		CheckInTime:  s.CheckInTime,
		CheckOutTime: at,
		Charge:       charge,
	}, nil
}

func (c *Coordinator) price(ctx context.Context, s model.Session, spot model.Spot, at time.Time,
	opts CheckoutOptions, policy Policy, allowNonPositive bool,
) (billing.Charge, error) {
	charge, err := billing.Compute(billing.Input{
		CheckIn:          s.CheckInTime,
		CheckOut:         at,
		VehicleType:      s.Vehicle.Type,
		RateType:         s.Vehicle.RateType,
		Spot:             spot,
		ApplyGrace:       opts.ApplyGracePeriod,
		Discount:         opts.Discount,
		AllowNonPositive: allowNonPositive,
	}, policy.Rates, policy.Billing)
	if err != nil {
		return billing.Charge{}, err
	}
	if c.discounter == nil || charge.Subtotal == 0 {
		return charge, nil
	}
	extra, err := c.discounter.Discount(ctx, s, charge)
	if err != nil {
		return billing.Charge{}, fmt.Errorf("discount: %w", err)
	}
	if extra < 0 {
		return billing.Charge{}, fmt.Errorf("discounter returned %v: %w", extra, billing.ErrInvalidDiscount)
	}
	return charge.WithDiscount(charge.Discount + extra), nil
}

func activeWithSpot(r Reader, op, plate string) (model.Session, model.Spot, error) {
	session, ok, err := r.ActiveSession(plate)
	if err != nil {
		return model.Session{}, model.Spot{}, err
	}
	if !ok {
		return model.Session{}, model.Spot{}, newError(op, plate, ErrVehicleNotFound, nil)
	}
	spot, err := r.Spot(session.SpotID)
	if err != nil {
		return model.Session{}, model.Spot{}, err
	}
	return session, spot, nil
}

func chargeKind(err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidTimeRange):
		return ErrInvalidTimeRange
	case errors.Is(err, billing.ErrInvalidDiscount):
		return ErrInvalidInput
	}
	return nil
}

// asError makes sure every returned error is an *Error.
func asError(op, plate string, err error) error {
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return newError(op, plate, nil, err)
}
