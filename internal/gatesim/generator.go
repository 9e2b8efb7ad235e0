package gatesim

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const randomFloatDivisor = 1000000

// Vehicle mix used for generated entries.
const (
	compactShare    = 0.20
	oversizedShare  = 0.15
	electricShare   = 0.10
	accessibleShare = 0.05
	minStay         = time.Minute
	plateLength     = 8
)

// vehicle is one simulated car and the entry event that parked it.
type vehicle struct {
	plate string
	entry Event
}

// randomFloat returns a random float64 in [0,1) using crypto/rand.
func randomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// newPlate returns a unique plate such as SIM-1A2B3C4D.
func newPlate() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "SIM-" + strings.ToUpper(id[:plateLength])
}

func randomVehicleType() string {
	switch r := randomFloat(); {
	case r < compactShare:
		return "compact"
	case r < compactShare+oversizedShare:
		return "oversized"
	default:
		return "standard"
	}
}

// generateVehicles creates n vehicles with unique plates and entry events
// stamped at now.
func generateVehicles(n int, now time.Time) []vehicle {
	vs := make([]vehicle, n)
	ts := now.UTC().Format(time.RFC3339)
	for i := range vs {
		plate := newPlate()
		vs[i] = vehicle{
			plate: plate,
			entry: Event{
				EventID:         uuid.New().String(),
				LicensePlate:    plate,
				VehicleType:     randomVehicleType(),
				Electric:        randomFloat() < electricShare,
				NeedsAccessible: randomFloat() < accessibleShare,
				Direction:       "entry",
				TS:              ts,
			},
		}
	}
	return vs
}

// generateExits picks the first ratio share of vehicles and builds their exit
// events with a stay between one minute and maxStay after now.
func generateExits(vs []vehicle, ratio float64, maxStay time.Duration, now time.Time) []Event {
	n := int(float64(len(vs)) * ratio)
	exits := make([]Event, 0, n)
	for _, v := range vs[:n] {
		stay := minStay + time.Duration(randomFloat()*float64(maxStay-minStay))
		exits = append(exits, Event{
			EventID:      uuid.New().String(),
			LicensePlate: v.plate,
			Direction:    "exit",
			TS:           now.Add(stay).UTC().Format(time.RFC3339),
		})
	}
	return exits
}

// sample returns roughly ratio of events, used to resend duplicates.
func sample(events []Event, ratio float64) []Event {
	n := int(float64(len(events)) * ratio)
	if n > len(events) {
		n = len(events)
	}
	return events[:n]
}

func entries(vs []vehicle) []Event {
	out := make([]Event, len(vs))
	for i, v := range vs {
		out[i] = v.entry
	}
	return out
}
