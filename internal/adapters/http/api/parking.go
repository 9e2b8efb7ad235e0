package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// ParkingDependencies defines the check-in and checkout operations.
type ParkingDependencies interface {
	CheckIn(ctx context.Context, v model.Vehicle) (lifecycle.CheckInResult, error)
	CheckOut(ctx context.Context, plate string, opts lifecycle.CheckoutOptions) (lifecycle.CheckoutResult, error)
	ForceCheckout(ctx context.Context, plate, reason string) (lifecycle.CheckoutResult, error)
	ReadyForCheckout(ctx context.Context, minMinutes int) ([]lifecycle.ReadySession, error)
	Session(ctx context.Context, plate string) (model.Session, error)
}

// ParkingHandler handles check-in, checkout and session requests.
type ParkingHandler struct {
	deps ParkingDependencies
}

// NewParkingHandler creates a new parking handler.
func NewParkingHandler(deps ParkingDependencies) *ParkingHandler {
	return &ParkingHandler{deps: deps}
}

// checkInRequest mirrors the OpenAPI schema for POST /checkin.
type checkInRequest struct {
	LicensePlate    string `json:"license_plate"`
	VehicleType     string `json:"vehicle_type"`
	RateType        string `json:"rate_type"`
	Electric        bool   `json:"electric"`
	NeedsAccessible bool   `json:"needs_accessible"`
}

func (req checkInRequest) vehicle() (model.Vehicle, error) {
	if strings.TrimSpace(req.LicensePlate) == "" {
		return model.Vehicle{}, errors.New("missing license_plate")
	}
	vt, err := types.ParseVehicleType(req.VehicleType)
	if err != nil {
		return model.Vehicle{}, err
	}
	rt := types.RateHourly
	if req.RateType != "" {
		if rt, err = types.ParseRateType(req.RateType); err != nil {
			return model.Vehicle{}, err
		}
	}
	return model.Vehicle{
		LicensePlate:    req.LicensePlate,
		Type:            vt,
		RateType:        rt,
		Electric:        req.Electric,
		NeedsAccessible: req.NeedsAccessible,
	}, nil
}

// checkOutRequest mirrors the OpenAPI schema for POST /checkout and
// POST /simulate/checkout.
type checkOutRequest struct {
	LicensePlate     string     `json:"license_plate"`
	CheckOutTime     *time.Time `json:"check_out_time,omitempty"`
	ApplyGracePeriod *bool      `json:"apply_grace_period,omitempty"`
	Discount         float64    `json:"discount,omitempty"`
}

func (req checkOutRequest) options() (lifecycle.CheckoutOptions, error) {
	if strings.TrimSpace(req.LicensePlate) == "" {
		return lifecycle.CheckoutOptions{}, errors.New("missing license_plate")
	}
	if req.Discount < 0 {
		return lifecycle.CheckoutOptions{}, errors.New("discount must not be negative")
	}
	opts := lifecycle.CheckoutOptions{
		ApplyGracePeriod: req.ApplyGracePeriod,
		Discount:         req.Discount,
	}
	if req.CheckOutTime != nil {
		opts.CheckOutTime = *req.CheckOutTime
	}
	return opts, nil
}

type forceCheckoutRequest struct {
	LicensePlate string `json:"license_plate"`
	Reason       string `json:"reason"`
}

// HandleCheckIn handles POST /checkin requests.
func (h *ParkingHandler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkin"
	var req checkInRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	v, err := req.vehicle()
	if err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.CheckIn(r.Context(), v)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleCheckOut handles POST /checkout requests.
func (h *ParkingHandler) HandleCheckOut(w http.ResponseWriter, r *http.Request) {
	const op = "api.checkout"
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
	res, err := h.deps.CheckOut(r.Context(), req.LicensePlate, opts)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleForceCheckout handles POST /checkout/force requests.
func (h *ParkingHandler) HandleForceCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "api.force_checkout"
	var req forceCheckoutRequest
	if err := decodeJSON(r, op, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if strings.TrimSpace(req.LicensePlate) == "" {
		writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("missing license_plate")))
		return
	}
	res, err := h.deps.ForceCheckout(r.Context(), req.LicensePlate, req.Reason)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleReadyForCheckout handles GET /sessions/ready?min_minutes=N requests.
func (h *ParkingHandler) HandleReadyForCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "api.ready_for_checkout"
	minMinutes := 0
	if raw := r.URL.Query().Get("min_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeFailure(w, WrapKind(op, ErrBadRequest, errors.New("min_minutes must be a non-negative integer")))
			return
		}
		minMinutes = n
	}
	out, err := h.deps.ReadyForCheckout(r.Context(), minMinutes)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if out == nil {
		out = []lifecycle.ReadySession{}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetSession handles GET /sessions/{plate} requests.
func (h *ParkingHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.deps.Session(r.Context(), chi.URLParam(r, "plate"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
