package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/garage/internal/domain/types"
)

// Rounding selects how a partial hour is billed.
type Rounding string

// Rounding modes.
const (
	RoundCeil    Rounding = "ceil"    // any started hour is billed in full
	RoundNearest Rounding = "nearest" // half an hour or more rounds up, minimum one hour
)

const defaultGracePeriod = 15 * time.Minute

// ParseRounding parses a rounding mode name. Empty means ceil.
func ParseRounding(s string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundCeil:
		return RoundCeil, nil
	case RoundNearest:
		return RoundNearest, nil
	}
	return "", fmt.Errorf("rounding %q: %w", s, ErrInvalidPolicy)
}

// Policy holds the pricing rules applied on top of the rate table.
type Policy struct {
	GracePeriod         time.Duration
	ApplyGraceByDefault bool
	Rounding            Rounding
	SpotSurcharges      map[types.Feature]float64 // extra per billable hour
}

// DefaultPolicy returns a 15 minute grace period, applied by default, with
// ceiling rounding and no surcharges.
func DefaultPolicy() Policy {
	return Policy{
		GracePeriod:         defaultGracePeriod,
		ApplyGraceByDefault: true,
		Rounding:            RoundCeil,
		SpotSurcharges:      map[types.Feature]float64{},
	}
}

// Validate checks the policy is usable.
func (p Policy) Validate() error {
	if p.GracePeriod < 0 {
		return fmt.Errorf("grace period %s is negative: %w", p.GracePeriod, ErrInvalidPolicy)
	}
	if _, err := ParseRounding(string(p.Rounding)); err != nil {
		return err
	}
	for f, v := range p.SpotSurcharges {
		if v < 0 {
			return fmt.Errorf("surcharge for %s is negative: %w", f, ErrInvalidPolicy)
		}
	}
	return nil
}

// Clone returns a copy that does not share the surcharge map.
func (p Policy) Clone() Policy {
	s := make(map[types.Feature]float64, len(p.SpotSurcharges))
	for f, v := range p.SpotSurcharges {
		s[f] = v
	}
	p.SpotSurcharges = s
	return p
}
