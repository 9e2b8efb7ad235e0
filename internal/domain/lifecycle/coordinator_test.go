package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/garage/internal/adapters/repository"
	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/billing"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ctx   context.Context
	clock *fakeClock
	store *repository.InMemoryStore
	coord *lifecycle.Coordinator
}

func newFixture(t *testing.T, blocks []repository.Block, policy lifecycle.Policy, opts ...lifecycle.Option) *fixture {
	t.Helper()
	ctx := context.Background()
	spots, err := repository.BuildLayout(blocks)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	store, err := repository.NewInMemoryStore(ctx, repository.WithSpots(spots))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clock := &fakeClock{t: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)}
	seq := 0
	opts = append([]lifecycle.Option{
		lifecycle.WithClock(clock.Now),
		lifecycle.WithIDGenerator(func() string { seq++; return fmt.Sprintf("session-%d", seq) }),
	}, opts...)
	return &fixture{
		ctx:   ctx,
		clock: clock,
		store: store,
		coord: lifecycle.New(store, lifecycle.StaticPolicy(policy), opts...),
	}
}

func flatPolicy(rate float64) lifecycle.Policy {
	p := lifecycle.DefaultPolicy()
	p.Rates = billing.RateTable{
		types.VehicleCompact:   {types.RateHourly: rate},
		types.VehicleStandard:  {types.RateHourly: rate},
		types.VehicleOversized: {types.RateHourly: rate},
	}
	return p
}

func compact(plate string) model.Vehicle {
	return model.Vehicle{LicensePlate: plate, Type: types.VehicleCompact}
}

func boolPtr(b bool) *bool { return &b }

func TestCheckIn(t *testing.T) {
	Convey("Given a garage with two compact spots", t, func() {
		f := newFixture(t, []repository.Block{{Floor: 1, Bay: 1, Count: 2, Type: types.SpotCompact}}, flatPolicy(5))

		Convey("When a vehicle checks in", func() {
			res, err := f.coord.CheckIn(f.ctx, compact(" abc123 "))

			Convey("Then it gets the first spot and an active session", func() {
				So(err, ShouldBeNil)
				So(res.Spot.ID, ShouldResemble, model.SpotID{Floor: 1, Bay: 1, Number: 1})
				So(res.Spot.Status, ShouldEqual, types.SpotOccupied)
				So(res.Session.ID, ShouldEqual, "session-1")
				So(res.Session.Plate(), ShouldEqual, "ABC123")
				So(res.Session.Active(), ShouldBeTrue)
				So(res.Session.CheckInTime, ShouldEqual, f.clock.Now())
			})

			Convey("And the same plate cannot check in again", func() {
				_, err := f.coord.CheckIn(f.ctx, compact("ABC123"))
				So(errors.Is(err, lifecycle.ErrAlreadyParked), ShouldBeTrue)
				So(lifecycle.Code(err), ShouldEqual, "ALREADY_PARKED")
			})

			Convey("And the garage fills up", func() {
				_, err := f.coord.CheckIn(f.ctx, compact("DEF456"))
				So(err, ShouldBeNil)

				_, err = f.coord.CheckIn(f.ctx, compact("GHI789"))
				So(errors.Is(err, lifecycle.ErrNoAvailableSpot), ShouldBeTrue)

				var le *lifecycle.Error
				So(errors.As(err, &le), ShouldBeTrue)
				So(le.Op, ShouldEqual, lifecycle.OpCheckIn)
				So(le.Plate, ShouldEqual, "GHI789")

				_, err = f.coord.Session(f.ctx, "GHI789")
				So(errors.Is(err, lifecycle.ErrVehicleNotFound), ShouldBeTrue)
			})
		})

		Convey("When an oversized vehicle checks in", func() {
			_, err := f.coord.CheckIn(f.ctx, model.Vehicle{LicensePlate: "BIG1", Type: types.VehicleOversized})
			So(errors.Is(err, lifecycle.ErrNoAvailableSpot), ShouldBeTrue)
		})

		Convey("When the input is invalid", func() {
			_, err := f.coord.CheckIn(f.ctx, compact("  "))
			So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)

			_, err = f.coord.CheckIn(f.ctx, model.Vehicle{LicensePlate: "X", Type: "bus"})
			So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestCheckOut(t *testing.T) {
	Convey("Given a parked vehicle at $10/hr", t, func() {
		f := newFixture(t, []repository.Block{{Floor: 1, Bay: 1, Count: 2, Type: types.SpotStandard}}, flatPolicy(10))
		in, err := f.coord.CheckIn(f.ctx, model.Vehicle{LicensePlate: "CAR1", Type: types.VehicleStandard})
		So(err, ShouldBeNil)

		Convey("When it leaves after 90 minutes", func() {
			at := in.Session.CheckInTime.Add(90 * time.Minute)
			est, estErr := f.coord.SimulateCheckout(f.ctx, "car1", lifecycle.CheckoutOptions{CheckOutTime: at})
			res, err := f.coord.CheckOut(f.ctx, "car1", lifecycle.CheckoutOptions{CheckOutTime: at})

			Convey("Then two hours are billed and the estimate matched", func() {
				So(estErr, ShouldBeNil)
				So(err, ShouldBeNil)
				So(res.Charge.Total, ShouldEqual, 20)
				So(res.Session.AmountDue, ShouldEqual, 20)
				So(est.Charge.Total, ShouldEqual, res.Session.AmountDue)
				So(est.Charge.Duration, ShouldResemble, res.Session.Duration)
			})

			Convey("Then the spot is free and the session is history", func() {
				So(res.Spot.Available(), ShouldBeTrue)
				So(res.Spot.CurrentVehicle, ShouldBeNil)
				So(*res.Session.CheckOutTime, ShouldEqual, at)

				_, err := f.coord.CheckOut(f.ctx, "CAR1", lifecycle.CheckoutOptions{CheckOutTime: at})
				So(errors.Is(err, lifecycle.ErrVehicleNotFound), ShouldBeTrue)

				stats, err := f.coord.CheckoutStats(f.ctx)
				So(err, ShouldBeNil)
				So(stats.CompletedSessions, ShouldEqual, 1)
				So(stats.ActiveSessions, ShouldEqual, 0)
				So(stats.Revenue, ShouldEqual, 20)
				So(stats.AverageMinutes, ShouldEqual, 90)
			})
		})

		Convey("When it leaves within the grace period", func() {
			res, err := f.coord.CheckOut(f.ctx, "CAR1", lifecycle.CheckoutOptions{
				CheckOutTime: in.Session.CheckInTime.Add(15 * time.Minute),
			})
			So(err, ShouldBeNil)
			So(res.Charge.Total, ShouldEqual, 0)
			So(res.Session.GraceApplied, ShouldBeTrue)

			stats, _ := f.coord.CheckoutStats(f.ctx)
			So(stats.GraceExits, ShouldEqual, 1)
		})

		Convey("When the checkout time is before check-in", func() {
			_, err := f.coord.CheckOut(f.ctx, "CAR1", lifecycle.CheckoutOptions{
				CheckOutTime: in.Session.CheckInTime.Add(-time.Minute),
			})

			Convey("Then it fails and the vehicle stays parked", func() {
				So(errors.Is(err, lifecycle.ErrInvalidTimeRange), ShouldBeTrue)
				So(errors.Is(err, billing.ErrInvalidTimeRange), ShouldBeTrue)

				s, err := f.coord.Session(f.ctx, "CAR1")
				So(err, ShouldBeNil)
				So(s.Active(), ShouldBeTrue)

				spots, _ := f.coord.Spots(f.ctx)
				So(spots[0].Status, ShouldEqual, types.SpotOccupied)
			})
		})

		Convey("When simulating for an unknown plate", func() {
			_, err := f.coord.SimulateCheckout(f.ctx, "NOPE", lifecycle.CheckoutOptions{})
			So(errors.Is(err, lifecycle.ErrSimulation), ShouldBeTrue)
			So(errors.Is(err, lifecycle.ErrVehicleNotFound), ShouldBeTrue)
			So(lifecycle.Code(err), ShouldEqual, "SIMULATION_ERROR")
		})

		Convey("When simulating with a bad time range", func() {
			_, err := f.coord.SimulateCheckout(f.ctx, "CAR1", lifecycle.CheckoutOptions{
				CheckOutTime: in.Session.CheckInTime,
			})
			So(errors.Is(err, lifecycle.ErrSimulation), ShouldBeTrue)
			So(errors.Is(err, lifecycle.ErrInvalidTimeRange), ShouldBeTrue)
		})

		Convey("When forcing a checkout", func() {
			Convey("Then an empty reason is rejected", func() {
				_, err := f.coord.ForceCheckout(f.ctx, "CAR1", "  ")
				So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)
			})

			Convey("Then a clock behind check-in still closes the session", func() {
				f.clock.Advance(-time.Hour)
				res, err := f.coord.ForceCheckout(f.ctx, "CAR1", "gate camera misread")
				So(err, ShouldBeNil)
				So(res.Forced, ShouldBeTrue)
				So(res.Reason, ShouldEqual, "gate camera misread")
				So(res.Session.Forced, ShouldBeTrue)
				So(res.Session.ForceReason, ShouldEqual, "gate camera misread")
				So(res.Session.AmountDue, ShouldEqual, 0)
				So(res.Spot.Available(), ShouldBeTrue)

				stats, _ := f.coord.CheckoutStats(f.ctx)
				So(stats.ForcedCheckouts, ShouldEqual, 1)
			})

			Convey("Then a normal stay is billed like a checkout", func() {
				f.clock.Advance(2 * time.Hour)
				res, err := f.coord.ForceCheckout(f.ctx, "CAR1", "manual exit")
				So(err, ShouldBeNil)
				So(res.Charge.Total, ShouldEqual, 20)
			})
		})

		Convey("When a discounter applies", func() {
			f.coord = lifecycle.New(f.store, lifecycle.StaticPolicy(flatPolicy(10)),
				lifecycle.WithClock(f.clock.Now),
				lifecycle.WithDiscounter(lifecycle.DiscounterFunc(
					func(context.Context, model.Session, billing.Charge) (float64, error) { return 3, nil },
				)))
			opts := lifecycle.CheckoutOptions{
				CheckOutTime: in.Session.CheckInTime.Add(60 * time.Minute),
				Discount:     2,
			}
			est, err := f.coord.SimulateCheckout(f.ctx, "CAR1", opts)
			So(err, ShouldBeNil)
			res, err := f.coord.CheckOut(f.ctx, "CAR1", opts)
			So(err, ShouldBeNil)
			So(res.Charge.Discount, ShouldEqual, 5)
			So(res.Charge.Total, ShouldEqual, 5)
			So(est.Charge, ShouldResemble, res.Charge)
		})
	})
}

func TestReadyForCheckout(t *testing.T) {
	Convey("Given three vehicles parked at different times", t, func() {
		f := newFixture(t, []repository.Block{{Floor: 1, Bay: 1, Count: 3, Type: types.SpotCompact}}, flatPolicy(4))
		_, _ = f.coord.CheckIn(f.ctx, compact("OLD"))
		f.clock.Advance(30 * time.Minute)
		_, _ = f.coord.CheckIn(f.ctx, compact("MID"))
		f.clock.Advance(20 * time.Minute)
		_, _ = f.coord.CheckIn(f.ctx, compact("NEW"))
		f.clock.Advance(10 * time.Minute)

		Convey("When asking for stays longer than 25 minutes", func() {
			ready, err := f.coord.ReadyForCheckout(f.ctx, 25)

			Convey("Then the two oldest come back with live estimates", func() {
				So(err, ShouldBeNil)
				So(len(ready), ShouldEqual, 2)
				So(ready[0].Session.Plate(), ShouldEqual, "OLD")
				So(ready[1].Session.Plate(), ShouldEqual, "MID")
				So(ready[0].Estimate.Charge.Total, ShouldEqual, 4)
				So(ready[0].Estimate.CheckOutTime, ShouldEqual, f.clock.Now())
			})
		})

		Convey("When the threshold is negative", func() {
			_, err := f.coord.ReadyForCheckout(f.ctx, -1)
			So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)
		})
	})

	Convey("Given a vehicle parked just under eleven minutes", t, func() {
		f := newFixture(t, []repository.Block{{Floor: 1, Bay: 1, Count: 1, Type: types.SpotCompact}}, flatPolicy(4))
		_, err := f.coord.CheckIn(f.ctx, compact("EDGE"))
		So(err, ShouldBeNil)

		Convey("When exactly ten minutes have passed", func() {
			f.clock.Advance(10 * time.Minute)
			ready, err := f.coord.ReadyForCheckout(f.ctx, 10)
			So(err, ShouldBeNil)
			So(ready, ShouldBeEmpty)
		})

		Convey("When ten minutes and a few seconds have passed", func() {
			f.clock.Advance(10*time.Minute + 59*time.Second)
			ready, err := f.coord.ReadyForCheckout(f.ctx, 10)
			So(err, ShouldBeNil)
			So(len(ready), ShouldEqual, 1)
			So(ready[0].Session.Plate(), ShouldEqual, "EDGE")
		})
	})
}

func TestMixedCaseInput(t *testing.T) {
	Convey("Given a compact spot and a standard spot", t, func() {
		policy := flatPolicy(10)
		policy.Rates[types.VehicleStandard][types.RateDaily] = 8
		f := newFixture(t, []repository.Block{
			{Floor: 1, Bay: 1, Count: 1, Type: types.SpotCompact},
			{Floor: 1, Bay: 1, Start: 2, Count: 1, Type: types.SpotStandard},
		}, policy)

		Convey("When a vehicle type arrives capitalized", func() {
			res, err := f.coord.CheckIn(f.ctx, model.Vehicle{LicensePlate: "MIX1", Type: "Compact"})

			Convey("Then it parks on the compact spot with the canonical type", func() {
				So(err, ShouldBeNil)
				So(res.Spot.Type, ShouldEqual, types.SpotCompact)
				So(res.Session.Vehicle.Type, ShouldEqual, types.VehicleCompact)
				So(res.Session.Vehicle.RateType, ShouldEqual, types.RateHourly)
			})
		})

		Convey("When a rate type arrives in upper case", func() {
			res, err := f.coord.CheckIn(f.ctx, model.Vehicle{LicensePlate: "MIX2", Type: types.VehicleStandard, RateType: "DAILY"})
			So(err, ShouldBeNil)
			So(res.Session.Vehicle.RateType, ShouldEqual, types.RateDaily)

			co, err := f.coord.CheckOut(f.ctx, "MIX2", lifecycle.CheckoutOptions{
				CheckOutTime:     res.Session.CheckInTime.Add(time.Hour),
				ApplyGracePeriod: boolPtr(false),
			})

			Convey("Then the daily price is billed", func() {
				So(err, ShouldBeNil)
				So(co.Charge.Total, ShouldEqual, 8)
			})
		})

		Convey("When simulating and reading availability with odd casing", func() {
			sim, err := f.coord.SimulateAssignment(f.ctx, assignment.Request{VehicleType: "COMPACT"})
			So(err, ShouldBeNil)
			So(sim.Spot, ShouldNotBeNil)
			So(sim.Spot.Type, ShouldEqual, types.SpotCompact)

			a, err := f.coord.Availability(f.ctx, "Compact")
			So(err, ShouldBeNil)
			So(a.VehicleType, ShouldEqual, types.VehicleCompact)
			So(a.HasAvailable, ShouldBeTrue)
		})
	})
}

func TestSimulateAssignmentAndStats(t *testing.T) {
	Convey("Given the garage scenario inventory", t, func() {
		f := newFixture(t, []repository.Block{
			{Floor: 1, Bay: 1, Count: 1, Type: types.SpotCompact},
			{Floor: 1, Bay: 1, Start: 2, Count: 1, Type: types.SpotOversized, Features: []types.Feature{types.FeatureEVCharging}},
		}, flatPolicy(5))
		req := assignment.Request{VehicleType: types.VehicleCompact}

		Convey("When simulating twice and then checking in", func() {
			first, err := f.coord.SimulateAssignment(f.ctx, req)
			So(err, ShouldBeNil)
			second, _ := f.coord.SimulateAssignment(f.ctx, req)
			res, err := f.coord.CheckIn(f.ctx, compact("SCN1"))
			So(err, ShouldBeNil)

			Convey("Then all three agree on the compact spot", func() {
				So(first.Spot.ID, ShouldResemble, second.Spot.ID)
				So(first.Spot.ID, ShouldResemble, res.Spot.ID)
				So(res.Spot.Type, ShouldEqual, types.SpotCompact)
			})

			Convey("Then 130 minutes with grace off costs $15", func() {
				co, err := f.coord.CheckOut(f.ctx, "SCN1", lifecycle.CheckoutOptions{
					CheckOutTime:     res.Session.CheckInTime.Add(130 * time.Minute),
					ApplyGracePeriod: boolPtr(false),
				})
				So(err, ShouldBeNil)
				So(co.Session.AmountDue, ShouldEqual, 15)
				So(co.Session.Duration.Hours, ShouldEqual, 2)
				So(co.Session.Duration.Minutes, ShouldEqual, 10)
			})

			Convey("Then the stats reflect one occupied spot", func() {
				st, err := f.coord.AssignmentStats(f.ctx)
				So(err, ShouldBeNil)
				So(st.TotalSpots, ShouldEqual, 2)
				So(st.ByStatus[types.SpotOccupied], ShouldEqual, 1)
				So(st.ByFloor[1].Occupied, ShouldEqual, 1)
				So(st.OccupancyRate, ShouldEqual, 0.5)
				So(st.Availability[types.VehicleOversized].Total, ShouldEqual, 1)
			})
		})

		Convey("When the vehicle type is unknown", func() {
			_, err := f.coord.SimulateAssignment(f.ctx, assignment.Request{VehicleType: "tank"})
			So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)

			_, err = f.coord.Availability(f.ctx, "tank")
			So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When taking a spot out of service", func() {
			id := model.SpotID{Floor: 1, Bay: 1, Number: 1}
			spot, err := f.coord.SetSpotStatus(f.ctx, id, types.SpotOutOfService)
			So(err, ShouldBeNil)
			So(spot.Status, ShouldEqual, types.SpotOutOfService)

			Convey("Then a compact vehicle gets the oversized spot instead", func() {
				res, err := f.coord.CheckIn(f.ctx, compact("SCN2"))
				So(err, ShouldBeNil)
				So(res.Spot.Type, ShouldEqual, types.SpotOversized)

				Convey("And the occupied spot cannot be changed", func() {
					_, err := f.coord.SetSpotStatus(f.ctx, res.Spot.ID, types.SpotOutOfService)
					So(errors.Is(err, lifecycle.ErrSpotOccupied), ShouldBeTrue)
				})
			})

			Convey("Then availability drops", func() {
				a, err := f.coord.Availability(f.ctx, types.VehicleCompact)
				So(err, ShouldBeNil)
				So(a.Total, ShouldEqual, 1)
			})
		})

		Convey("When setting an unknown spot or status", func() {
			_, err := f.coord.SetSpotStatus(f.ctx, model.SpotID{Floor: 7}, types.SpotAvailable)
			So(errors.Is(err, lifecycle.ErrSpotNotFound), ShouldBeTrue)

			_, err = f.coord.SetSpotStatus(f.ctx, model.SpotID{Floor: 1, Bay: 1, Number: 1}, types.SpotOccupied)
			So(errors.Is(err, lifecycle.ErrInvalidInput), ShouldBeTrue)
		})
	})
}
