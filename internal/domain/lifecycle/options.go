package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/garage/internal/domain/billing"
	"github.com/okian/garage/internal/domain/model"
)

// Discounter supplies a discount for a session about to be billed. The result
// is added to any discount given in CheckoutOptions.
type Discounter interface {
	Discount(ctx context.Context, s model.Session, c billing.Charge) (float64, error)
}

// DiscounterFunc adapts a function to Discounter.
type DiscounterFunc func(ctx context.Context, s model.Session, c billing.Charge) (float64, error)

// Discount implements Discounter.
func (f DiscounterFunc) Discount(ctx context.Context, s model.Session, c billing.Charge) (float64, error) {
	return f(ctx, s, c)
}

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithClock sets the source of "now".
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator sets how session ids are produced.
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// WithDiscounter installs a discount policy applied at checkout.
func WithDiscounter(d Discounter) Option {
	return func(c *Coordinator) {
		c.discounter = d
	}
}

func defaultID() string { return uuid.NewString() }
