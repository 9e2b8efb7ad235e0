// Package config defines service configuration and how it maps onto the
// parking policy and the spot layout.
//
// Conventions:
// - New() returns a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with ErrLoadConfig or ErrInvalidConfig.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ShutdownTimeoutSeconds bounds graceful shutdown of HTTP and workers.
	ShutdownTimeoutSeconds int `koanf:"shutdown_timeout_seconds"`

	// GateQueueSize bounds the in-memory gate event queue.
	GateQueueSize int `koanf:"gate_queue_size"`

	// WorkerCount sets the number of gate event workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many gate event ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// HistoryLimit caps completed sessions kept in memory.
	HistoryLimit int `koanf:"history_limit"`

	// Tracing
	TracingEnabled bool   `koanf:"tracing_enabled"`
	OTLPEndpoint   string `koanf:"otlp_endpoint"`
	ServiceName    string `koanf:"service_name"`

	// Billing
	GracePeriodMinutes int                           `koanf:"grace_period_minutes"`
	ApplyGracePeriod   bool                          `koanf:"apply_grace_period"`
	Rounding           string                        `koanf:"rounding"`
	Rates              map[string]map[string]float64 `koanf:"rates"`      // vehicle type -> rate type -> price per hour
	Surcharges         map[string]float64            `koanf:"surcharges"` // spot feature -> extra per hour

	// Preferences tunes spot scoring.
	Preferences Preferences `koanf:"preferences"`

	// Layout describes the garage inventory. Empty means the built-in layout.
	Layout []Block `koanf:"layout"`
}

// Preferences mirrors the assignment scoring weights.
type Preferences struct {
	PreferLowerFloors    bool               `koanf:"prefer_lower_floors"`
	FloorWeight          float64            `koanf:"floor_weight"`
	MaxFloorPenalty      float64            `koanf:"max_floor_penalty"`
	PreferredBays        map[string]float64 `koanf:"preferred_bays"`
	BayBonus             float64            `koanf:"bay_bonus"`
	SpotNumberWeight     float64            `koanf:"spot_number_weight"`
	ExactTypeMatchBonus  float64            `koanf:"exact_type_match_bonus"`
	EVChargingBonus      float64            `koanf:"ev_charging_bonus"`
	HandicapPenalty      float64            `koanf:"handicap_penalty"`
	AccessibleMatchBonus float64            `koanf:"accessible_match_bonus"`
}

// Block is one contiguous run of spots in the layout.
type Block struct {
	Floor    int      `koanf:"floor"`
	Bay      int      `koanf:"bay"`
	Start    int      `koanf:"start"`
	Count    int      `koanf:"count"`
	Type     string   `koanf:"type"`
	Features []string `koanf:"features"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		ShutdownTimeoutSeconds: 10,
		GateQueueSize:          10_000,
		WorkerCount:            runtime.NumCPU() * 2,
		DedupeSize:             50_000,
		HistoryLimit:           10_000,
		ServiceName:            "garage",
		OTLPEndpoint:           "localhost:4318",
		GracePeriodMinutes:     15,
		ApplyGracePeriod:       true,
		Rounding:               "ceil",
		Preferences: Preferences{
			PreferLowerFloors:    true,
			FloorWeight:          10,
			MaxFloorPenalty:      50,
			BayBonus:             5,
			SpotNumberWeight:     0.01,
			ExactTypeMatchBonus:  20,
			EVChargingBonus:      25,
			HandicapPenalty:      30,
			AccessibleMatchBonus: 40,
		},
	}
}
