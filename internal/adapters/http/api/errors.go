package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/garage/internal/adapters/mq/queue"
	service "github.com/okian/garage/internal/app"
	"github.com/okian/garage/internal/domain/lifecycle"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
)

// kindError tags an error with the handler op and an API kind.
type kindError struct {
	op   string
	kind error
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("%s: %v", e.op, e.kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.err)
}

func (e *kindError) Unwrap() []error {
	if e.err == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &kindError{op: op, kind: kind}
}

// WrapKind returns err tagged with op and kind.
func WrapKind(op string, kind, err error) error {
	return &kindError{op: op, kind: kind, err: err}
}

var lifecycleStatus = map[string]struct {
	status int
	code   string
}{
	"ALREADY_PARKED":     {http.StatusConflict, "already_parked"},
	"NO_AVAILABLE_SPOT":  {http.StatusConflict, "no_available_spot"},
	"VEHICLE_NOT_FOUND":  {http.StatusNotFound, "vehicle_not_found"},
	"INVALID_TIME_RANGE": {http.StatusUnprocessableEntity, "invalid_time_range"},
	"SIMULATION_ERROR":   {http.StatusUnprocessableEntity, "simulation_error"},
	"INVALID_INPUT":      {http.StatusBadRequest, "invalid_input"},
}

// statusFor maps an error to an HTTP status and a response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidGateEvent):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure), errors.Is(err, queue.ErrFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, lifecycle.ErrSpotNotFound):
		return http.StatusNotFound, "spot_not_found"
	case errors.Is(err, lifecycle.ErrSpotOccupied):
		return http.StatusConflict, "spot_occupied"
	}
	if m, ok := lifecycleStatus[lifecycle.Code(err)]; ok {
		return m.status, m.code
	}
	return http.StatusInternalServerError, "internal_error"
}
