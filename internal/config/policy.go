package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/okian/garage/internal/adapters/repository"
	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/billing"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/types"
	"github.com/okian/garage/pkg/logger"
)

// Validate checks process settings, the policy and the layout.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.GateQueueSize <= 0 {
		return fmt.Errorf("%w: gate_queue_size must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}
	if c.DedupeSize <= 0 {
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit must not be negative", ErrInvalidConfig)
	}
	if c.LogFormat != logger.FormatText && c.LogFormat != logger.FormatJSON {
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Policy(); err != nil {
		return err
	}
	if _, err := c.Blocks(); err != nil {
		return err
	}
	return nil
}

// ShutdownTimeout returns the graceful shutdown bound.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// Policy converts the billing and scoring sections into a validated policy
// snapshot. Configured rates override the defaults per vehicle and rate type.
func (c *Config) Policy() (lifecycle.Policy, error) {
	rates := billing.DefaultRates()
	for vtName, byRate := range c.Rates {
		vt, err := types.ParseVehicleType(vtName)
		if err != nil {
			return lifecycle.Policy{}, fmt.Errorf("%w: rates: %w", ErrInvalidConfig, err)
		}
		if rates[vt] == nil {
			rates[vt] = map[types.RateType]float64{}
		}
		for rtName, price := range byRate {
			rt, err := types.ParseRateType(rtName)
			if err != nil {
				return lifecycle.Policy{}, fmt.Errorf("%w: rates.%s: %w", ErrInvalidConfig, vtName, err)
			}
			rates[vt][rt] = price
		}
	}

	rounding, err := billing.ParseRounding(c.Rounding)
	if err != nil {
		return lifecycle.Policy{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	surcharges := make(map[types.Feature]float64, len(c.Surcharges))
	for name, v := range c.Surcharges {
		f, err := types.ParseFeature(name)
		if err != nil {
			return lifecycle.Policy{}, fmt.Errorf("%w: surcharges: %w", ErrInvalidConfig, err)
		}
		surcharges[f] = v
	}

	prefs, err := c.Preferences.toAssignment()
	if err != nil {
		return lifecycle.Policy{}, err
	}

	p := lifecycle.Policy{
		Preferences: prefs,
		Rates:       rates,
		Billing: billing.Policy{
			GracePeriod:         time.Duration(c.GracePeriodMinutes) * time.Minute,
			ApplyGraceByDefault: c.ApplyGracePeriod,
			Rounding:            rounding,
			SpotSurcharges:      surcharges,
		},
	}
	if err := p.Validate(); err != nil {
		return lifecycle.Policy{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return p, nil
}

func (p Preferences) toAssignment() (assignment.Preferences, error) {
	bays := make(map[int]float64, len(p.PreferredBays))
	for key, weight := range p.PreferredBays {
		bay, err := strconv.Atoi(key)
		if err != nil {
			return assignment.Preferences{}, fmt.Errorf("%w: preferences.preferred_bays: bay %q is not a number", ErrInvalidConfig, key)
		}
		bays[bay] = weight
	}
	return assignment.Preferences{
		PreferLowerFloors:    p.PreferLowerFloors,
		FloorWeight:          p.FloorWeight,
		MaxFloorPenalty:      p.MaxFloorPenalty,
		PreferredBays:        bays,
		BayBonus:             p.BayBonus,
		SpotNumberWeight:     p.SpotNumberWeight,
		ExactTypeMatchBonus:  p.ExactTypeMatchBonus,
		EVChargingBonus:      p.EVChargingBonus,
		HandicapPenalty:      p.HandicapPenalty,
		AccessibleMatchBonus: p.AccessibleMatchBonus,
	}, nil
}

// Blocks converts the layout section. An empty layout yields the built-in one.
func (c *Config) Blocks() ([]repository.Block, error) {
	if len(c.Layout) == 0 {
		return repository.DefaultLayout(), nil
	}
	blocks := make([]repository.Block, 0, len(c.Layout))
	for i, b := range c.Layout {
		st, err := types.ParseSpotType(b.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: layout[%d]: %w", ErrInvalidConfig, i, err)
		}
		features := make([]types.Feature, 0, len(b.Features))
		for _, name := range b.Features {
			f, err := types.ParseFeature(name)
			if err != nil {
				return nil, fmt.Errorf("%w: layout[%d]: %w", ErrInvalidConfig, i, err)
			}
			features = append(features, f)
		}
		if b.Count <= 0 {
			return nil, fmt.Errorf("%w: layout[%d]: count must be positive", ErrInvalidConfig, i)
		}
		blocks = append(blocks, repository.Block{
			Floor: b.Floor, Bay: b.Bay, Start: b.Start, Count: b.Count, Type: st, Features: features,
		})
	}
	return blocks, nil
}
