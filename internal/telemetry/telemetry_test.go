package telemetry

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestProvider(t *testing.T) {
	Convey("Given telemetry options", t, func() {
		ctx := context.Background()

		Convey("When tracing is disabled", func() {
			p, err := New(ctx)

			Convey("Then a no-op tracer is returned", func() {
				So(err, ShouldBeNil)
				So(p.Enabled(), ShouldBeFalse)
				_, span := p.Tracer().Start(ctx, "noop")
				So(span.SpanContext().IsValid(), ShouldBeFalse)
				span.End()
				So(p.Shutdown(ctx), ShouldBeNil)
			})
		})

		Convey("When tracing is enabled with an in-memory exporter", func() {
			exp := tracetest.NewInMemoryExporter()
			p, err := New(ctx, WithEnabled(true), WithServiceName("garage-test"), WithExporter(exp))
			So(err, ShouldBeNil)

			_, span := p.Tracer().Start(ctx, "checkin")
			span.End()
			So(p.ForceFlush(ctx), ShouldBeNil)

			Convey("Then spans are exported", func() {
				So(p.Enabled(), ShouldBeTrue)
				spans := exp.GetSpans()
				So(spans, ShouldHaveLength, 1)
				So(spans[0].Name, ShouldEqual, "checkin")
				So(p.Shutdown(ctx), ShouldBeNil)
			})
		})
	})
}

func TestTrimScheme(t *testing.T) {
	Convey("Given collector endpoints", t, func() {
		So(trimScheme("http://otel:4318"), ShouldEqual, "otel:4318")
		So(trimScheme("https://otel:4318"), ShouldEqual, "otel:4318")
		So(trimScheme("otel:4318"), ShouldEqual, "otel:4318")
	})
}
