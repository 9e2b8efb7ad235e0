package config_test

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/garage/internal/config"
	"github.com/okian/garage/internal/domain/billing"
	"github.com/okian/garage/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.GateQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.GracePeriodMinutes, convey.ShouldEqual, 15)
			convey.So(cfg.ShutdownTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Policy(t *testing.T) {
	convey.Convey("Given a config with billing overrides", t, func() {
		cfg := config.New()
		cfg.Rates = map[string]map[string]float64{"Compact": {"hourly": 4}}
		cfg.Surcharges = map[string]float64{"ev_charging": 1.5}
		cfg.Rounding = "nearest"
		cfg.GracePeriodMinutes = 10
		cfg.Preferences.PreferredBays = map[string]float64{"2": 1.5}

		convey.Convey("When converting to a policy", func() {
			p, err := cfg.Policy()

			convey.Convey("Then overrides are applied on top of default rates", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(p.Rates[types.VehicleCompact][types.RateHourly], convey.ShouldEqual, 4)
				convey.So(p.Rates[types.VehicleStandard][types.RateHourly], convey.ShouldEqual, 5)
				convey.So(p.Billing.SpotSurcharges[types.FeatureEVCharging], convey.ShouldEqual, 1.5)
				convey.So(p.Billing.Rounding, convey.ShouldEqual, billing.RoundNearest)
				convey.So(p.Billing.GracePeriod, convey.ShouldEqual, 10*time.Minute)
				convey.So(p.Preferences.PreferredBays[2], convey.ShouldEqual, 1.5)
			})
		})

		convey.Convey("When a rate names an unknown vehicle type", func() {
			cfg.Rates = map[string]map[string]float64{"truck": {"hourly": 9}}
			_, err := cfg.Policy()

			convey.Convey("Then it is an invalid config", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a preferred bay is not a number", func() {
			cfg.Preferences.PreferredBays = map[string]float64{"north": 1}
			_, err := cfg.Policy()

			convey.Convey("Then it is an invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a price is negative", func() {
			cfg.Rates = map[string]map[string]float64{"compact": {"hourly": -1}}
			_, err := cfg.Policy()

			convey.Convey("Then the policy is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfig_Blocks(t *testing.T) {
	convey.Convey("Given a config layout", t, func() {
		cfg := config.New()

		convey.Convey("When the layout is empty", func() {
			blocks, err := cfg.Blocks()

			convey.Convey("Then the built-in layout is used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(blocks), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When the layout names blocks", func() {
			cfg.Layout = []config.Block{
				{Floor: 1, Bay: 1, Count: 3, Type: "compact"},
				{Floor: 1, Bay: 2, Count: 2, Type: "ev_charging", Features: []string{"covered"}},
			}
			blocks, err := cfg.Blocks()

			convey.Convey("Then they are converted", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(blocks, convey.ShouldHaveLength, 2)
				convey.So(blocks[1].Type, convey.ShouldEqual, types.SpotEVCharging)
				convey.So(blocks[1].Features, convey.ShouldResemble, []types.Feature{types.FeatureCovered})
			})
		})

		convey.Convey("When a block has an unknown type", func() {
			cfg.Layout = []config.Block{{Floor: 1, Bay: 1, Count: 3, Type: "helipad"}}
			_, err := cfg.Blocks()

			convey.Convey("Then it is an invalid config", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
