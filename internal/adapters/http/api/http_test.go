package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/garage/internal/adapters/http/api"
	"github.com/okian/garage/internal/adapters/mq/queue"
	"github.com/okian/garage/internal/adapters/repository"
	service "github.com/okian/garage/internal/app"
	"github.com/okian/garage/internal/domain/assignment"
	"github.com/okian/garage/internal/domain/lifecycle"
	"github.com/okian/garage/internal/domain/model"
	"github.com/okian/garage/internal/domain/types"
	"github.com/okian/garage/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDependencies routes every call to an optional func; unset funcs
// return err.
type mockDependencies struct {
	err        error
	checkIn    func(model.Vehicle) (lifecycle.CheckInResult, error)
	checkOut   func(string, lifecycle.CheckoutOptions) (lifecycle.CheckoutResult, error)
	submit     func(model.GateEvent) (bool, error)
	setStatus  func(model.SpotID, types.SpotStatus) (model.Spot, error)
	simulate   func(assignment.Request) (assignment.Simulation, error)
	readyCalls []int
}

func (m *mockDependencies) CheckIn(_ context.Context, v model.Vehicle) (lifecycle.CheckInResult, error) {
	if m.checkIn != nil {
		return m.checkIn(v)
	}
	return lifecycle.CheckInResult{}, m.err
}

func (m *mockDependencies) CheckOut(_ context.Context, plate string, o lifecycle.CheckoutOptions) (lifecycle.CheckoutResult, error) {
	if m.checkOut != nil {
		return m.checkOut(plate, o)
	}
	return lifecycle.CheckoutResult{}, m.err
}

func (m *mockDependencies) ForceCheckout(context.Context, string, string) (lifecycle.CheckoutResult, error) {
	return lifecycle.CheckoutResult{Forced: true}, m.err
}

func (m *mockDependencies) ReadyForCheckout(_ context.Context, minMinutes int) ([]lifecycle.ReadySession, error) {
	m.readyCalls = append(m.readyCalls, minMinutes)
	return nil, m.err
}

func (m *mockDependencies) Session(context.Context, string) (model.Session, error) {
	return model.Session{}, m.err
}

func (m *mockDependencies) SimulateAssignment(_ context.Context, req assignment.Request) (assignment.Simulation, error) {
	if m.simulate != nil {
		return m.simulate(req)
	}
	return assignment.Simulation{}, m.err
}

func (m *mockDependencies) SimulateCheckout(context.Context, string, lifecycle.CheckoutOptions) (lifecycle.CheckoutEstimate, error) {
	return lifecycle.CheckoutEstimate{}, m.err
}

func (m *mockDependencies) Availability(context.Context, types.VehicleType) (assignment.Availability, error) {
	return assignment.Availability{}, m.err
}

func (m *mockDependencies) Spots(context.Context) ([]model.Spot, error) {
	return nil, m.err
}

func (m *mockDependencies) SetSpotStatus(_ context.Context, id model.SpotID, st types.SpotStatus) (model.Spot, error) {
	if m.setStatus != nil {
		return m.setStatus(id, st)
	}
	return model.Spot{}, m.err
}

func (m *mockDependencies) AssignmentStats(context.Context) (lifecycle.AssignmentStats, error) {
	return lifecycle.AssignmentStats{}, m.err
}

func (m *mockDependencies) CheckoutStats(context.Context) (lifecycle.CheckoutStats, error) {
	return lifecycle.CheckoutStats{}, m.err
}

func (m *mockDependencies) SubmitGateEvent(_ context.Context, e model.GateEvent) (bool, error) {
	if m.submit != nil {
		return m.submit(e)
	}
	return false, m.err
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

func newRouter(deps api.Dependencies) http.Handler {
	srv := api.NewServer(deps, &mockStatsProvider{stats: map[string]interface{}{"started": true}},
		api.WithLogger(logger.Discard()))
	return srv.Router(context.Background())
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestRouterBasics(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("Then health serves metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then every response carries a request id", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then an incoming request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats/checkout", nil)
			req.Header.Set(api.RequestIDHeader, "req-42")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-42")
		})

		Convey("Then unknown routes are 404 and wrong methods 405", func() {
			So(do(h, http.MethodGet, "/nope", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(h, http.MethodGet, "/checkin", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("Then ready-for-checkout parses min_minutes", func() {
			w := do(h, http.MethodGet, "/sessions/ready?min_minutes=45", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			So(deps.readyCalls, ShouldResemble, []int{45})

			w = do(h, http.MethodGet, "/sessions/ready?min_minutes=-1", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestCheckInValidation(t *testing.T) {
	Convey("Given a check-in handler", t, func() {
		var got model.Vehicle
		deps := &mockDependencies{checkIn: func(v model.Vehicle) (lifecycle.CheckInResult, error) {
			got = v
			return lifecycle.CheckInResult{Score: 12}, nil
		}}
		h := newRouter(deps)

		Convey("When the body is valid", func() {
			w := do(h, http.MethodPost, "/checkin", `{"license_plate":"abc","vehicle_type":"Compact","electric":true}`)

			Convey("Then the vehicle is passed through and 201 returned", func() {
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(got.Type, ShouldEqual, types.VehicleCompact)
				So(got.RateType, ShouldEqual, types.RateHourly)
				So(got.Electric, ShouldBeTrue)
			})
		})

		Convey("When fields are missing or malformed", func() {
			cases := []string{
				`{"vehicle_type":"compact"}`,
				`{"license_plate":"abc","vehicle_type":"truck"}`,
				`{"license_plate":"abc","vehicle_type":"compact","rate_type":"weekly"}`,
				`{"license_plate":"abc","vehicle_type":"compact","color":"red"}`,
				`not json`,
			}

			Convey("Then each is a 400 bad_request", func() {
				for _, body := range cases {
					w := do(h, http.MethodPost, "/checkin", body)
					So(w.Code, ShouldEqual, http.StatusBadRequest)
					So(errorCode(w), ShouldEqual, "bad_request")
				}
			})
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given lifecycle failures", t, func() {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{&lifecycle.Error{Kind: lifecycle.ErrAlreadyParked, Op: "checkin"}, http.StatusConflict, "already_parked"},
			{&lifecycle.Error{Kind: lifecycle.ErrNoAvailableSpot, Op: "checkin"}, http.StatusConflict, "no_available_spot"},
			{&lifecycle.Error{Kind: lifecycle.ErrVehicleNotFound, Op: "checkout"}, http.StatusNotFound, "vehicle_not_found"},
			{&lifecycle.Error{Kind: lifecycle.ErrInvalidTimeRange, Op: "checkout"}, http.StatusUnprocessableEntity, "invalid_time_range"},
			{&lifecycle.Error{Kind: lifecycle.ErrSimulation, Op: "simulate_checkout"}, http.StatusUnprocessableEntity, "simulation_error"},
			{&lifecycle.Error{Kind: lifecycle.ErrInvalidInput, Op: "checkout"}, http.StatusBadRequest, "invalid_input"},
			{errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
		}

		Convey("Then checkout maps each to its status and code", func() {
			for _, c := range cases {
				h := newRouter(&mockDependencies{err: c.err})
				w := do(h, http.MethodPost, "/checkout", `{"license_plate":"X"}`)
				So(w.Code, ShouldEqual, c.status)
				So(errorCode(w), ShouldEqual, c.code)
			}
		})

		Convey("Then spot errors map to 404 and 409", func() {
			notFound := &lifecycle.Error{Kind: lifecycle.ErrInvalidInput, Op: "set_spot_status", Err: lifecycle.ErrSpotNotFound}
			occupied := &lifecycle.Error{Kind: lifecycle.ErrInvalidInput, Op: "set_spot_status",
				Err: fmt.Errorf("F1-B1-S1: %w", lifecycle.ErrSpotOccupied)}

			w := do(newRouter(&mockDependencies{err: notFound}), http.MethodPut, "/spots/F1-B1-S1/status", `{"status":"out_of_service"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "spot_not_found")

			w = do(newRouter(&mockDependencies{err: occupied}), http.MethodPut, "/spots/F1-B1-S1/status", `{"status":"available"}`)
			So(w.Code, ShouldEqual, http.StatusConflict)
			So(errorCode(w), ShouldEqual, "spot_occupied")
		})

		Convey("Then a bad spot id or status is a 400", func() {
			h := newRouter(&mockDependencies{})
			So(do(h, http.MethodPut, "/spots/garage-1/status", `{"status":"available"}`).Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodPut, "/spots/F1-B1-S1/status", `{"status":"closed"}`).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestSimulateAssignmentQuery(t *testing.T) {
	Convey("Given the simulate assignment handler", t, func() {
		var got assignment.Request
		h := newRouter(&mockDependencies{simulate: func(req assignment.Request) (assignment.Simulation, error) {
			got = req
			return assignment.Simulation{}, nil
		}})

		Convey("When query flags are set", func() {
			w := do(h, http.MethodGet, "/simulate/assignment?vehicle_type=standard&electric=true&accessible=1", "")

			Convey("Then they reach the engine", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(got, ShouldResemble, assignment.Request{VehicleType: types.VehicleStandard, Electric: true, NeedsAccessible: true})
			})
		})

		Convey("When the vehicle type is missing or a flag is not a bool", func() {
			So(do(h, http.MethodGet, "/simulate/assignment", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(h, http.MethodGet, "/simulate/assignment?vehicle_type=compact&electric=maybe", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGateEvents(t *testing.T) {
	Convey("Given the gate events handler", t, func() {
		const body = `{"event_id":"e1","license_plate":"abc","vehicle_type":"compact","direction":"entry","ts":"2026-01-02T10:00:00Z"}`

		Convey("When an event is accepted", func() {
			var got model.GateEvent
			h := newRouter(&mockDependencies{submit: func(e model.GateEvent) (bool, error) {
				got = e
				return false, nil
			}})
			w := do(h, http.MethodPost, "/gate-events", body)

			Convey("Then it is 202 and the timestamp is parsed", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(got.TS.Equal(time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(got.Direction, ShouldEqual, types.DirectionEntry)
			})
		})

		Convey("When the event is a duplicate", func() {
			h := newRouter(&mockDependencies{submit: func(model.GateEvent) (bool, error) { return true, nil }})
			w := do(h, http.MethodPost, "/gate-events", body)

			Convey("Then it is 200 duplicate", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})
		})

		Convey("When the queue is full", func() {
			h := newRouter(&mockDependencies{err: queue.ErrFull})
			w := do(h, http.MethodPost, "/gate-events", body)

			Convey("Then it is 429 backpressure", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
			})
		})

		Convey("When ts is not RFC3339", func() {
			h := newRouter(&mockDependencies{})
			w := do(h, http.MethodPost, "/gate-events", strings.Replace(body, "2026-01-02T10:00:00Z", "yesterday", 1))
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestAgainstService(t *testing.T) {
	Convey("Given the router over a running service", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithLogger(logger.Discard()),
			service.WithWorkerCount(1),
			service.WithLayout([]repository.Block{
				{Floor: 1, Bay: 1, Count: 1, Type: types.SpotCompact},
				{Floor: 1, Bay: 2, Count: 1, Type: types.SpotOversized, Features: []types.Feature{types.FeatureEVCharging}},
			}),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()
		h := api.NewServer(svc, svc, api.WithLogger(logger.Discard())).Router(ctx)

		Convey("When a compact vehicle checks in and out", func() {
			w := do(h, http.MethodPost, "/checkin", `{"license_plate":"e2e-1","vehicle_type":"compact"}`)
			So(w.Code, ShouldEqual, http.StatusCreated)
			var in lifecycle.CheckInResult
			So(json.Unmarshal(w.Body.Bytes(), &in), ShouldBeNil)

			Convey("Then it got the compact spot", func() {
				So(in.Spot.Type, ShouldEqual, types.SpotCompact)
			})

			Convey("And a second check-in conflicts", func() {
				w := do(h, http.MethodPost, "/checkin", `{"license_plate":"E2E-1","vehicle_type":"compact"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "already_parked")
			})

			Convey("And the occupied spot cannot be taken out of service", func() {
				path := "/spots/" + in.Spot.ID.String() + "/status"
				w := do(h, http.MethodPut, path, `{"status":"out_of_service"}`)
				So(w.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("And a checkout two hours and ten minutes later bills three hours", func() {
				out := in.Session.CheckInTime.Add(130 * time.Minute).Format(time.RFC3339Nano)
				w := do(h, http.MethodPost, "/checkout",
					fmt.Sprintf(`{"license_plate":"e2e-1","check_out_time":%q,"apply_grace_period":false}`, out))
				So(w.Code, ShouldEqual, http.StatusOK)
				var res lifecycle.CheckoutResult
				So(json.Unmarshal(w.Body.Bytes(), &res), ShouldBeNil)
				So(res.Charge.BillableHours, ShouldEqual, 3)
				So(res.Charge.Duration.Hours, ShouldEqual, 2)
				So(res.Charge.Duration.Minutes, ShouldEqual, 10)
			})
		})

		Convey("When an unknown plate checks out", func() {
			w := do(h, http.MethodPost, "/checkout", `{"license_plate":"ghost"}`)
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(errorCode(w), ShouldEqual, "vehicle_not_found")
		})
	})
}
