package lifecycle

import (
	"errors"
	"fmt"
)

// Error kinds. Every coordinator failure wraps exactly one of these.
var (
	ErrAlreadyParked    = errors.New("vehicle already has an active session")
	ErrNoAvailableSpot  = errors.New("no compatible spot available")
	ErrVehicleNotFound  = errors.New("no active session for vehicle")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrSimulation       = errors.New("simulation failed")
	ErrInvalidInput     = errors.New("invalid input")
)

// Store errors. Implementations of Store return these so the coordinator can
// classify them.
var (
	ErrSpotNotFound     = errors.New("spot not found")
	ErrSpotOccupied     = errors.New("spot is occupied")
	ErrSessionExists    = errors.New("active session already exists")
	ErrSessionNotActive = errors.New("session is not active")
)

var codes = map[error]string{
	ErrAlreadyParked:    "ALREADY_PARKED",
	ErrNoAvailableSpot:  "NO_AVAILABLE_SPOT",
	ErrVehicleNotFound:  "VEHICLE_NOT_FOUND",
	ErrInvalidTimeRange: "INVALID_TIME_RANGE",
	ErrSimulation:       "SIMULATION_ERROR",
	ErrInvalidInput:     "INVALID_INPUT",
}

// Error is returned by every Coordinator operation.
type Error struct {
	Kind  error  // one of the Err* kinds above, nil for unexpected failures
	Op    string // operation name, e.g. "checkin"
	Plate string // normalized plate when known
	Err   error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Plate != "" {
		msg += " " + e.Plate
	}
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Code returns the stable code of the outermost kind, e.g. "NO_AVAILABLE_SPOT",
// or "INTERNAL" when err carries no kind.
func Code(err error) string {
	var le *Error
	if errors.As(err, &le) && le.Kind != nil {
		if c, ok := codes[le.Kind]; ok {
			return c
		}
	}
	return "INTERNAL"
}

func newError(op, plate string, kind, cause error) *Error {
	return &Error{Kind: kind, Op: op, Plate: plate, Err: cause}
}
