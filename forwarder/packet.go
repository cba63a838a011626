package forwarder

import (
	"github.com/jd3nn1s/dashboard/vehicle"
)

type Header struct {
	Type uint8
}

const (
	TypeState = 1
)

// StatePacket is the little-endian body following a Header of TypeState.
type StatePacket struct {
	Speed          float64
	BatteryVoltage float64
	BatteryPercent float64
	Gear           uint8
	TurnSignal     uint8
	BusConnected   uint8
	// Field is the vehicle.Field whose change produced this packet.
	Field uint8
}

func newStatePacket(c vehicle.Change) StatePacket {
	p := StatePacket{
		Speed:          c.State.Speed,
		BatteryVoltage: c.State.BatteryVoltage,
		BatteryPercent: c.State.BatteryPercent,
		Gear:           uint8(c.State.Gear),
		TurnSignal:     uint8(c.State.TurnSignal),
		Field:          uint8(c.Field),
	}
	if c.State.BusConnected {
		p.BusConnected = 1
	}
	return p
}
