package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/types"
)

// SimulationDependencies defines the read-only what-if operations.
type SimulationDependencies interface {
	SimulateAssignment(ctx context.Context, req assignment.Request) (assignment.Simulation, error)
	SimulateCheckout(ctx context.Context, plate string, opts lifecycle.CheckoutOptions) (lifecycle.CheckoutEstimate, error)
}

// SimulationHandler handles simulation requests.
type SimulationHandler struct {
	deps SimulationDependencies
}

// NewSimulationHandler creates a new simulation handler.
func NewSimulationHandler(deps SimulationDependencies) *SimulationHandler {
	return &SimulationHandler{deps: deps}
}

// HandleSimulateAssignment handles
// GET /simulate/assignment?vehicle_type=&electric=&accessible= requests.
func (h *SimulationHandler) HandleSimulateAssignment(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate_assignment"
	q := r.URL.Query()
	vt, err := types.ParseVehicleType(q.Get("vehicle_type"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	electric, err := queryBool(q.Get("electric"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	accessible, err := queryBool(q.Get("accessible"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sim, err := h.deps.SimulateAssignment(r.Context(), assignment.Request{
		VehicleType:     vt,
		Electric:        electric,
		NeedsAccessible: accessible,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sim)
}

// HandleSimulateCheckout handles POST /simulate/checkout requests.
func (h *SimulationHandler) HandleSimulateCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "api.simulate_checkout"
	var req checkOutRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	opts, err := req.options()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	est, err := h.deps.SimulateCheckout(r.Context(), req.LicensePlate, opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, est)
}

// queryBool parses an optional boolean query value; empty is false.
func queryBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}
