package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// InventoryDependencies defines spot inventory operations.
type InventoryDependencies interface {
	Availability(ctx context.Context, vt types.VehicleType) (assignment.Availability, error)
	Spots(ctx context.Context) ([]model.Spot, error)
	SetSpotStatus(ctx context.Context, id model.SpotID, status types.SpotStatus) (model.Spot, error)
}

// InventoryHandler handles spot and availability requests.
type InventoryHandler struct {
	deps InventoryDependencies
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(deps InventoryDependencies) *InventoryHandler {
	return &InventoryHandler{deps: deps}
}

type spotStatusRequest struct {
	Status string `json:"status"`
}

// HandleAvailability handles GET /availability?vehicle_type= requests.
func (h *InventoryHandler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	const op = "api.availability"
	vt, err := types.ParseVehicleType(r.URL.Query().Get("vehicle_type"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	a, err := h.deps.Availability(r.Context(), vt)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleListSpots handles GET /spots requests.
func (h *InventoryHandler) HandleListSpots(w http.ResponseWriter, r *http.Request) {
	spots, err := h.deps.Spots(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spots)
}

// HandleSetSpotStatus handles PUT /spots/{spotID}/status requests.
func (h *InventoryHandler) HandleSetSpotStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_spot_status"
	id, err := model.ParseSpotID(chi.URLParam(r, "spotID"))
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	var req spotStatusRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	status, err := types.ParseSpotStatus(req.Status)
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	spot, err := h.deps.SetSpotStatus(r.Context(), id, status)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spot)
}
