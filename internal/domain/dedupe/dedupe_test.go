package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/garage/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a deduper with default options", t, func() {
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When an event id is new", func() {
			seen := d.SeenAndRecord(ctx, "gate-1")

			Convey("Then it is recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And repeating it reports a duplicate", func() {
				So(d.SeenAndRecord(ctx, "gate-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And unrecording lets it through again", func() {
				d.Unrecord(ctx, "gate-1")
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "gate-1"), ShouldBeFalse)
			})
		})

		Convey("When unrecording an unknown id", func() {
			d.Unrecord(ctx, "missing")
			So(d.Size(), ShouldEqual, 0)
		})
	})

	Convey("Given a deduper bounded to three ids", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"a", "b", "c"} {
			So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
		}

		Convey("When a fourth id arrives", func() {
			So(d.SeenAndRecord(ctx, "d"), ShouldBeFalse)

			Convey("Then the oldest id is forgotten first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "b"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})
		})

		Convey("When the middle id is unrecorded", func() {
			d.Unrecord(ctx, "b")
			So(d.SeenAndRecord(ctx, "e"), ShouldBeFalse)

			Convey("Then no eviction was needed", func() {
				So(d.SeenAndRecord(ctx, "a"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		for i := 0; i < 1000; i++ {
			d.SeenAndRecord(ctx, fmt.Sprintf("e-%d", i))
		}
		So(d.Size(), ShouldEqual, 1000)
		So(d.SeenAndRecord(ctx, "e-0"), ShouldBeTrue)
	})

	Convey("Given concurrent gates reporting the same events", t, func() {
		d := dedupe.NewInMemoryDeduper()
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					if !d.SeenAndRecord(ctx, fmt.Sprintf("evt-%d", i)) {
						mu.Lock()
						fresh++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		Convey("Then each id is fresh exactly once", func() {
			So(fresh, ShouldEqual, 100)
			So(d.Size(), ShouldEqual, 100)
		})
	})
}
