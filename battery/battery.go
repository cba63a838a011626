package battery

import (
	"github.com/pkg/errors"
)

// Calibration maps pack voltage onto a 0-100 % charge level linearly.
// Hardware revisions disagree on the lower bound, so both known variants
// are named here and neither is assumed by the estimator.
type Calibration struct {
	MinVoltage float64 `toml:"min_voltage"`
	MaxVoltage float64 `toml:"max_voltage"`
}

var (
	// CalibrationDashboard is the 3S pack range used by the dashboard service.
	CalibrationDashboard = Calibration{MinVoltage: 9.0, MaxVoltage: 12.6}
	// CalibrationUnified is the narrower range used by the unified service.
	CalibrationUnified = Calibration{MinVoltage: 11.0, MaxVoltage: 12.6}
)

// INA219 addresses seen on the two board revisions.
const (
	AddressINA219Primary   uint16 = 0x40
	AddressINA219Alternate uint16 = 0x41
)

var presets = map[string]Calibration{
	"dashboard": CalibrationDashboard,
	"unified":   CalibrationUnified,
}

func Preset(name string) (Calibration, error) {
	c, ok := presets[name]
	if !ok {
		return Calibration{}, errors.Errorf("unknown battery calibration preset %q", name)
	}
	return c, nil
}

func (c Calibration) Validate() error {
	if c.MaxVoltage <= c.MinVoltage {
		return errors.Errorf("battery max voltage %.2f must exceed min voltage %.2f",
			c.MaxVoltage, c.MinVoltage)
	}
	return nil
}

// Percent converts a voltage into a charge level clamped to [0,100].
func (c Calibration) Percent(voltage float64) float64 {
	percent := (voltage - c.MinVoltage) / (c.MaxVoltage - c.MinVoltage) * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// Sensor provides one voltage sample per call.
type Sensor interface {
	ReadVoltage() (float64, error)
	Close() error
}
