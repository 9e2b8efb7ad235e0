package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// EventDependencies defines the interface for gate event intake.
type EventDependencies interface {
	// SubmitGateEvent deduplicates and queues e. duplicate reports an event
	// id that was already accepted.
	SubmitGateEvent(ctx context.Context, e model.GateEvent) (duplicate bool, err error)
}

// EventsHandler handles gate event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// gateEventRequest mirrors the OpenAPI schema for POST /gate-events.
type gateEventRequest struct {
	EventID         string `json:"event_id"`
	LicensePlate    string `json:"license_plate"`
	VehicleType     string `json:"vehicle_type"`
	Electric        bool   `json:"electric"`
	NeedsAccessible bool   `json:"needs_accessible"`
	Direction       string `json:"direction"`
	TS              string `json:"ts"`
}

func (e gateEventRequest) event() (model.GateEvent, error) {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return model.GateEvent{}, errors.New("missing event_id")
	case strings.TrimSpace(e.LicensePlate) == "":
		return model.GateEvent{}, errors.New("missing license_plate")
	case strings.TrimSpace(e.TS) == "":
		return model.GateEvent{}, errors.New("missing ts")
	}
	ts, err := time.Parse(time.RFC3339, e.TS)
	if err != nil {
		return model.GateEvent{}, errors.New("invalid ts; must be RFC3339")
	}
	return model.GateEvent{
		EventID:         e.EventID,
		LicensePlate:    e.LicensePlate,
		VehicleType:     types.VehicleType(e.VehicleType),
		Electric:        e.Electric,
		NeedsAccessible: e.NeedsAccessible,
		Direction:       types.Direction(e.Direction),
		TS:              ts,
	}, nil
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// HandlePostGateEvent handles POST /gate-events requests.
func (h *EventsHandler) HandlePostGateEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_gate_event"
	var req gateEventRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	e, err := req.event()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	duplicate, err := h.deps.SubmitGateEvent(r.Context(), e)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
