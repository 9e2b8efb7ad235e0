package model

import (
	"time"

	"github.com/okian/garage/internal/domain/types"
)

// GateEvent is a sensor report of a vehicle passing an entry or exit gate.
type GateEvent struct {
	EventID         string            // unique id for idempotency
	LicensePlate    string            // plate read by the gate camera
	VehicleType     types.VehicleType // size class, required on entry
	Electric        bool              // vehicle can use a charger
	NeedsAccessible bool              // vehicle displays an accessibility permit
	Direction       types.Direction   // entry or exit
	TS              time.Time         // time the gate fired
}

// Vehicle builds the vehicle described by an entry event.
func (e GateEvent) Vehicle() Vehicle {
	return Vehicle{
		LicensePlate:    NormalizePlate(e.LicensePlate),
		Type:            e.VehicleType,
		RateType:        types.RateHourly,
		Electric:        e.Electric,
		NeedsAccessible: e.NeedsAccessible,
	}
}
