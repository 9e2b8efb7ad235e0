// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/garage/pkg/logger"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ParkingDependencies
	SimulationDependencies
	InventoryDependencies
	StatsDependencies
	EventDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	eventsHandler     *EventsHandler
	parkingHandler    *ParkingHandler
	simulationHandler *SimulationHandler
	inventoryHandler  *InventoryHandler

	tracer trace.Tracer
	logger logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTracer sets the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the logger used for request failures and panics.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:     NewHealthHandler(),
		statsHandler:      NewStatsHandler(deps, statsProvider),
		eventsHandler:     NewEventsHandler(deps),
		parkingHandler:    NewParkingHandler(deps),
		simulationHandler: NewSimulationHandler(deps),
		inventoryHandler:  NewInventoryHandler(deps),
		tracer:            noop.NewTracerProvider().Tracer("garage-http"),
		logger:            logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns a chi router with middleware and every business route.
// Callers may add more routes, e.g. API docs, to the returned router.
func (s *Server) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(s.logger))
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware(s.tracer))
	r.Use(MetricsMiddleware)
	s.Register(ctx, r)
	return r
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)

	r.Post("/checkin", s.parkingHandler.HandleCheckIn)
	r.Post("/checkout", s.parkingHandler.HandleCheckOut)
	r.Post("/checkout/force", s.parkingHandler.HandleForceCheckout)
	r.Get("/sessions/ready", s.parkingHandler.HandleReadyForCheckout)
	r.Get("/sessions/{plate}", s.parkingHandler.HandleGetSession)

	r.Get("/simulate/assignment", s.simulationHandler.HandleSimulateAssignment)
	r.Post("/simulate/checkout", s.simulationHandler.HandleSimulateCheckout)

	r.Get("/availability", s.inventoryHandler.HandleAvailability)
	r.Get("/spots", s.inventoryHandler.HandleListSpots)
	r.Put("/spots/{spotID}/status", s.inventoryHandler.HandleSetSpotStatus)

	r.Get("/stats", s.statsHandler.HandleStats)
	r.Get("/stats/assignment", s.statsHandler.HandleAssignmentStats)
	r.Get("/stats/checkout", s.statsHandler.HandleCheckoutStats)

	r.Post("/gate-events", s.eventsHandler.HandlePostGateEvent)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps err through statusFor.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, op string, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
