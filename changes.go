package dashboard

import (
	"math"

	"github.com/jd3nn1s/dashboard/vehicle"
)

// Thresholds are the smallest numeric changes worth publishing. Enumerated
// fields publish on any difference.
type Thresholds struct {
	Speed          float64 `toml:"speed"`
	BatteryPercent float64 `toml:"battery_percent"`
	BatteryVoltage float64 `toml:"battery_voltage"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Speed:          0.1,
		BatteryPercent: 0.1,
		BatteryVoltage: 0.01,
	}
}

type ChangeDetector struct {
	thresholds Thresholds
}

func NewChangeDetector(thresholds Thresholds) *ChangeDetector {
	return &ChangeDetector{
		thresholds: thresholds,
	}
}

// Changed reports whether field differs enough between the last published
// state and the candidate to be published.
func (d *ChangeDetector) Changed(field vehicle.Field, published, candidate vehicle.State) bool {
	switch field {
	case vehicle.FieldSpeed:
		return math.Abs(candidate.Speed-published.Speed) > d.thresholds.Speed
	case vehicle.FieldBatteryPercent:
		return math.Abs(candidate.BatteryPercent-published.BatteryPercent) > d.thresholds.BatteryPercent
	case vehicle.FieldBatteryVoltage:
		return math.Abs(candidate.BatteryVoltage-published.BatteryVoltage) > d.thresholds.BatteryVoltage
	case vehicle.FieldGear:
		return candidate.Gear != published.Gear
	case vehicle.FieldTurnSignal:
		return candidate.TurnSignal != published.TurnSignal
	case vehicle.FieldBusConnected:
		return candidate.BusConnected != published.BusConnected
	}
	return false
}
