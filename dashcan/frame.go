package dashcan

import (
	"encoding/binary"

	"github.com/brutella/can"
	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	FrameSpeed      uint32 = 0x100
	FrameGear       uint32 = 0x102
	FrameTurnSignal uint32 = 0x103

	maxDataLength = 8
)

// Frame is a raw bus frame with a payload of up to 8 bytes.
type Frame struct {
	ID   uint32
	Data []byte
}

func fromCAN(f can.Frame) Frame {
	n := int(f.Length)
	if n > maxDataLength {
		n = maxDataLength
	}
	data := make([]byte, n)
	copy(data, f.Data[:n])
	return Frame{
		ID:   f.ID,
		Data: data,
	}
}

func (f Frame) toCAN() (can.Frame, error) {
	if len(f.Data) > maxDataLength {
		return can.Frame{}, errors.Errorf("frame 0x%03X payload too long: %d bytes", f.ID, len(f.Data))
	}
	out := can.Frame{
		ID:     f.ID,
		Length: uint8(len(f.Data)),
	}
	copy(out.Data[:], f.Data)
	return out, nil
}

type EventKind int

const (
	EventSpeed EventKind = iota + 1
	EventGear
	EventTurnSignal
)

// Event is the meaning of a decoded frame. Only the field matching Kind is set.
type Event struct {
	Kind       EventKind
	Speed      uint16
	Gear       vehicle.Gear
	TurnSignal vehicle.TurnSignal
}

// Decode maps a frame to its event. Short frames, unknown identifiers and
// out-of-range gear codes are dropped.
func Decode(f Frame) (Event, bool) {
	switch f.ID {
	case FrameSpeed:
		v, err := uint16Result(f.Data)
		if err != nil {
			log.WithField("canID", f.ID).Debug(err)
			return Event{}, false
		}
		return Event{Kind: EventSpeed, Speed: v}, true
	case FrameGear:
		if len(f.Data) < 1 {
			break
		}
		if f.Data[0] == 0 {
			return Event{Kind: EventGear, Gear: vehicle.GearPark}, true
		}
		g, err := vehicle.ParseGear(string(rune(f.Data[0])))
		if err != nil {
			log.WithField("canID", f.ID).Debug(err)
			return Event{}, false
		}
		return Event{Kind: EventGear, Gear: g}, true
	case FrameTurnSignal:
		if len(f.Data) < 1 {
			break
		}
		ts := vehicle.TurnSignal(f.Data[0])
		if !ts.Valid() {
			ts = vehicle.TurnSignalOff
		}
		return Event{Kind: EventTurnSignal, TurnSignal: ts}, true
	default:
		log.WithField("canID", f.ID).Debug("unknown canID")
		return Event{}, false
	}
	log.WithField("canID", f.ID).
		WithField("length", len(f.Data)).
		Debug("frame too short")
	return Event{}, false
}

func GearFrame(g vehicle.Gear) Frame {
	return Frame{
		ID:   FrameGear,
		Data: []byte{byte(g)},
	}
}

func TurnSignalFrame(ts vehicle.TurnSignal) Frame {
	return Frame{
		ID:   FrameTurnSignal,
		Data: []byte{byte(ts)},
	}
}

func uint16Result(data []byte) (uint16, error) {
	if len(data) < 2 {
		return 0, errors.Errorf("incorrect frame size for uint16: %v", len(data))
	}
	return binary.BigEndian.Uint16(data[0:2]), nil
}
