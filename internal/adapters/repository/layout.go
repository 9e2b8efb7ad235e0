package repository

import (
	"fmt"

	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
)

// Block is a run of identical spots in one bay.
type Block struct {
	Floor    int
	Bay      int
	Start    int // first spot number, 1 when zero
	Count    int
	Type     types.SpotType
	Features []types.Feature
}

// DefaultLayout is a small two-floor garage.
func DefaultLayout() []Block {
	return []Block{
		{Floor: 1, Bay: 1, Count: 10, Type: types.SpotCompact},
		{Floor: 1, Bay: 2, Count: 2, Type: types.SpotStandard, Features: []types.Feature{types.FeatureHandicap}},
		{Floor: 1, Bay: 2, Start: 3, Count: 8, Type: types.SpotStandard},
		{Floor: 1, Bay: 3, Count: 4, Type: types.SpotEVCharging, Features: []types.Feature{types.FeatureCovered}},
		{Floor: 2, Bay: 1, Count: 12, Type: types.SpotStandard, Features: []types.Feature{types.FeatureCovered}},
		{Floor: 2, Bay: 2, Count: 4, Type: types.SpotOversized},
	}
}

// BuildLayout expands blocks into available spots ordered by id.
func BuildLayout(blocks []Block) ([]model.Spot, error) {
	seen := make(map[model.SpotID]struct{})
	var spots []model.Spot
	for i, b := range blocks {
		if b.Count <= 0 {
			return nil, fmt.Errorf("block %d: count must be positive: %w", i, ErrInvalidLayout)
		}
		if b.Bay < 0 {
			return nil, fmt.Errorf("block %d: bay must not be negative: %w", i, ErrInvalidLayout)
		}
		if _, err := types.ParseSpotType(string(b.Type)); err != nil {
			return nil, fmt.Errorf("block %d: %w: %w", i, ErrInvalidLayout, err)
		}
		for _, f := range b.Features {
			if _, err := types.ParseFeature(string(f)); err != nil {
				return nil, fmt.Errorf("block %d: %w: %w", i, ErrInvalidLayout, err)
			}
		}
		start := b.Start
		if start == 0 {
			start = 1
		}
		for n := start; n < start+b.Count; n++ {
			id := model.SpotID{Floor: b.Floor, Bay: b.Bay, Number: n}
			if _, dup := seen[id]; dup {
				return nil, fmt.Errorf("block %d: %s: %w", i, id, ErrDuplicateSpot)
			}
			seen[id] = struct{}{}
			spots = append(spots, model.Spot{
				ID:       id,
				Type:     b.Type,
				Status:   types.SpotAvailable,
				Features: append([]types.Feature(nil), b.Features...),
			})
		}
	}
	model.SortSpots(spots)
	return spots, nil
}
