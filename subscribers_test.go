package dashboard

import (
	"testing"

	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/stretchr/testify/assert"
)

func TestHubFiltersByField(t *testing.T) {
	h := NewHub()
	speeds, cancelSpeed := h.Subscribe(vehicle.FieldSpeed, 1)
	defer cancelSpeed()
	gears, cancelGear := h.Subscribe(vehicle.FieldGear, 1)
	defer cancelGear()

	state := vehicle.InitialState()
	state.Speed = 12
	assert.NoError(t, h.Forward(vehicle.Change{Field: vehicle.FieldSpeed, State: state}))

	assert.Equal(t, 12.0, (<-speeds).State.Speed)
	assert.Len(t, gears, 0)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(vehicle.FieldSpeed, 1)
	defer cancel()

	change := vehicle.Change{Field: vehicle.FieldSpeed}
	assert.NoError(t, h.Forward(change))
	assert.NoError(t, h.Forward(change))
	assert.NoError(t, h.Forward(change))
	assert.Len(t, ch, 1)
	assert.Equal(t, uint64(2), h.Dropped())
}

func TestHubCancel(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe(vehicle.FieldGear, 1)
	cancel()
	// cancelling twice is harmless
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, h.Forward(vehicle.Change{Field: vehicle.FieldGear}))
}
