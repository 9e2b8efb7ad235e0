package api

import (
	"context"
	"net/http"

	"github.com/okian/garage/internal/domain/lifecycle"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsDependencies defines the diagnostics read by /stats.
type StatsDependencies interface {
	AssignmentStats(ctx context.Context) (lifecycle.AssignmentStats, error)
	CheckoutStats(ctx context.Context) (lifecycle.CheckoutStats, error)
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	deps          StatsDependencies
	statsProvider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps StatsDependencies, statsProvider StatsProvider) *StatsHandler {
	return &StatsHandler{deps: deps, statsProvider: statsProvider}
}

type statsResponse struct {
	Service    map[string]interface{}    `json:"service"`
	Assignment lifecycle.AssignmentStats `json:"assignment"`
	Checkout   lifecycle.CheckoutStats   `json:"checkout"`
}

// HandleStats handles GET /stats requests.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.AssignmentStats(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	c, err := h.deps.CheckoutStats(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Service:    h.statsProvider.GetStats(),
		Assignment: a,
		Checkout:   c,
	})
}

// HandleAssignmentStats handles GET /stats/assignment requests.
func (h *StatsHandler) HandleAssignmentStats(w http.ResponseWriter, r *http.Request) {
	a, err := h.deps.AssignmentStats(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleCheckoutStats handles GET /stats/checkout requests.
func (h *StatsHandler) HandleCheckoutStats(w http.ResponseWriter, r *http.Request) {
	c, err := h.deps.CheckoutStats(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
