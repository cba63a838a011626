package dashboard

import (
	"context"

	"github.com/jd3nn1s/dashboard/vehicle"
)

// sample is one candidate value handed from a worker to the consumer loop.
type sample struct {
	field      vehicle.Field
	value      float64
	gear       vehicle.Gear
	turnSignal vehicle.TurnSignal
	connected  bool
}

type command struct {
	sample sample
	reply  chan bool
}

func speedSample(v float64) sample {
	return sample{field: vehicle.FieldSpeed, value: v}
}

func batteryVoltageSample(v float64) sample {
	return sample{field: vehicle.FieldBatteryVoltage, value: v}
}

func batteryPercentSample(v float64) sample {
	return sample{field: vehicle.FieldBatteryPercent, value: v}
}

func gearSample(g vehicle.Gear) sample {
	return sample{field: vehicle.FieldGear, gear: g}
}

func turnSignalSample(t vehicle.TurnSignal) sample {
	return sample{field: vehicle.FieldTurnSignal, turnSignal: t}
}

func busSample(connected bool) sample {
	return sample{field: vehicle.FieldBusConnected, connected: connected}
}

func (s sample) assign(state *vehicle.State) {
	switch s.field {
	case vehicle.FieldSpeed:
		if s.value < 0 {
			s.value = 0
		}
		state.Speed = s.value
	case vehicle.FieldBatteryVoltage:
		state.BatteryVoltage = s.value
	case vehicle.FieldBatteryPercent:
		state.BatteryPercent = s.value
	case vehicle.FieldGear:
		state.Gear = s.gear
	case vehicle.FieldTurnSignal:
		state.TurnSignal = s.turnSignal
	case vehicle.FieldBusConnected:
		state.BusConnected = s.connected
	}
}

// handoff blocks until the consumer accepts s or ctx is cancelled.
func handoff(ctx context.Context, sendChan chan<- sample, s sample) bool {
	select {
	case sendChan <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
