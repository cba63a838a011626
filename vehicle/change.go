package vehicle

import (
	"strconv"
)

type Field int

const (
	FieldSpeed Field = iota
	FieldBatteryVoltage
	FieldBatteryPercent
	FieldGear
	FieldTurnSignal
	FieldBusConnected
)

var fieldNames = [...]string{
	FieldSpeed:          "speed",
	FieldBatteryVoltage: "battery-voltage",
	FieldBatteryPercent: "battery-percent",
	FieldGear:           "gear",
	FieldTurnSignal:     "turn-signal",
	FieldBusConnected:   "bus-connected",
}

// Fields lists every published field in a stable order.
var Fields = []Field{
	FieldSpeed,
	FieldBatteryVoltage,
	FieldBatteryPercent,
	FieldGear,
	FieldTurnSignal,
	FieldBusConnected,
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "field(" + strconv.Itoa(int(f)) + ")"
	}
	return fieldNames[f]
}

// Change is raised once per published field change. State is the snapshot
// after the change was applied.
type Change struct {
	Field Field
	State State
}

// Value returns the changed field's value: float64 for numeric fields,
// Gear, TurnSignal or bool otherwise.
func (c Change) Value() interface{} {
	return c.State.Value(c.Field)
}

func (s State) Value(f Field) interface{} {
	switch f {
	case FieldSpeed:
		return s.Speed
	case FieldBatteryVoltage:
		return s.BatteryVoltage
	case FieldBatteryPercent:
		return s.BatteryPercent
	case FieldGear:
		return s.Gear
	case FieldTurnSignal:
		return s.TurnSignal
	case FieldBusConnected:
		return s.BusConnected
	}
	return nil
}

// FormatValue renders a field the way string-based transports carry it.
func (s State) FormatValue(f Field) string {
	switch v := s.Value(f).(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(v)
	case Gear:
		return v.String()
	case TurnSignal:
		return v.String()
	}
	return ""
}
