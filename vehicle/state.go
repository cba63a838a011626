package vehicle

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidGear       = errors.New("invalid gear (use P/R/N/D/S)")
	ErrInvalidTurnSignal = errors.New("invalid turn signal mode (use off/left/right/hazard)")
)

// Gear is the ASCII code of the selected gear.
type Gear byte

const (
	GearPark    Gear = 'P'
	GearReverse Gear = 'R'
	GearNeutral Gear = 'N'
	GearDrive   Gear = 'D'
	GearSport   Gear = 'S'
)

func (g Gear) Valid() bool {
	switch g {
	case GearPark, GearReverse, GearNeutral, GearDrive, GearSport:
		return true
	}
	return false
}

func (g Gear) String() string {
	return string(rune(g))
}

// ParseGear accepts a single gear letter in either case.
func ParseGear(code string) (Gear, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 1 {
		return 0, errors.Wrapf(ErrInvalidGear, "%q", code)
	}
	g := Gear(code[0])
	if !g.Valid() {
		return 0, errors.Wrapf(ErrInvalidGear, "%q", code)
	}
	return g, nil
}

// TurnSignal values match the bus encoding of frame 0x103.
type TurnSignal uint8

const (
	TurnSignalOff TurnSignal = iota
	TurnSignalLeft
	TurnSignalRight
	TurnSignalHazard
)

var turnSignalNames = [...]string{
	TurnSignalOff:    "off",
	TurnSignalLeft:   "left",
	TurnSignalRight:  "right",
	TurnSignalHazard: "hazard",
}

func (t TurnSignal) Valid() bool {
	return int(t) < len(turnSignalNames)
}

func (t TurnSignal) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TurnSignal(%d)", uint8(t))
	}
	return turnSignalNames[t]
}

func ParseTurnSignal(mode string) (TurnSignal, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	for i, name := range turnSignalNames {
		if name == mode {
			return TurnSignal(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidTurnSignal, "%q", mode)
}

// State is the cabin state shown by the instrument cluster. Speed is in cm/s.
type State struct {
	Speed          float64
	BatteryVoltage float64
	BatteryPercent float64
	Gear           Gear
	TurnSignal     TurnSignal
	BusConnected   bool
}

func InitialState() State {
	return State{
		Gear:       GearPark,
		TurnSignal: TurnSignalOff,
	}
}
