package dashcan

import (
	"testing"

	"github.com/brutella/can"
	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/stretchr/testify/assert"
)

func TestDecodeSpeed(t *testing.T) {
	e, ok := Decode(Frame{ID: FrameSpeed, Data: []byte{0x01, 0x2C}})
	assert.True(t, ok)
	assert.Equal(t, Event{Kind: EventSpeed, Speed: 300}, e)

	// extra payload bytes are ignored
	e, ok = Decode(Frame{ID: FrameSpeed, Data: []byte{0x00, 0x0A, 0xFF, 0xFF}})
	assert.True(t, ok)
	assert.Equal(t, uint16(10), e.Speed)

	_, ok = Decode(Frame{ID: FrameSpeed, Data: []byte{0x01}})
	assert.False(t, ok)
}

func TestDecodeGear(t *testing.T) {
	e, ok := Decode(Frame{ID: FrameGear, Data: []byte{'D'}})
	assert.True(t, ok)
	assert.Equal(t, Event{Kind: EventGear, Gear: vehicle.GearDrive}, e)

	e, ok = Decode(Frame{ID: FrameGear, Data: []byte{0}})
	assert.True(t, ok)
	assert.Equal(t, vehicle.GearPark, e.Gear)

	e, ok = Decode(Frame{ID: FrameGear, Data: []byte{'r'}})
	assert.True(t, ok)
	assert.Equal(t, vehicle.GearReverse, e.Gear)

	_, ok = Decode(Frame{ID: FrameGear, Data: []byte{'X'}})
	assert.False(t, ok)

	_, ok = Decode(Frame{ID: FrameGear})
	assert.False(t, ok)
}

func TestDecodeTurnSignal(t *testing.T) {
	for b, expected := range map[byte]vehicle.TurnSignal{
		0: vehicle.TurnSignalOff,
		1: vehicle.TurnSignalLeft,
		2: vehicle.TurnSignalRight,
		3: vehicle.TurnSignalHazard,
		9: vehicle.TurnSignalOff,
	} {
		e, ok := Decode(Frame{ID: FrameTurnSignal, Data: []byte{b}})
		assert.True(t, ok)
		assert.Equal(t, EventTurnSignal, e.Kind)
		assert.Equal(t, expected, e.TurnSignal)
	}

	_, ok := Decode(Frame{ID: FrameTurnSignal, Data: []byte{}})
	assert.False(t, ok)
}

func TestDecodeUnknown(t *testing.T) {
	_, ok := Decode(Frame{ID: 0x400, Data: []byte{1, 2}})
	assert.False(t, ok)
}

func TestEncode(t *testing.T) {
	assert.Equal(t, Frame{ID: FrameGear, Data: []byte{'N'}}, GearFrame(vehicle.GearNeutral))
	assert.Equal(t, Frame{ID: FrameTurnSignal, Data: []byte{3}}, TurnSignalFrame(vehicle.TurnSignalHazard))
}

func TestFromCAN(t *testing.T) {
	f := fromCAN(can.Frame{ID: FrameGear, Length: 12, Data: [8]uint8{1, 2, 3, 4, 5, 6, 7, 8}})
	assert.Len(t, f.Data, 8)

	f = fromCAN(can.Frame{ID: FrameGear, Length: 1, Data: [8]uint8{'S', 2}})
	assert.Equal(t, []byte{'S'}, f.Data)
}

func TestUint16Result(t *testing.T) {
	_, err := uint16Result(nil)
	assert.Error(t, err)

	n, err := uint16Result([]byte{0x01, 0x2C})
	assert.NoError(t, err)
	assert.Equal(t, uint16(300), n)
}
