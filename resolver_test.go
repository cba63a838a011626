package dashboard

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type openerStub struct {
	fail   map[string]error
	opened map[string]int
}

func newOpenerStub(fail map[string]error) *openerStub {
	return &openerStub{
		fail:   fail,
		opened: make(map[string]int),
	}
}

func (o *openerStub) open(name string) (CANBus, error) {
	o.opened[name]++
	if err, ok := o.fail[name]; ok {
		return nil, err
	}
	return createCANBusStub(), nil
}

func TestResolveBusFallback(t *testing.T) {
	errA := errors.New("no such device")
	o := newOpenerStub(map[string]error{"vcan0": errA})

	res := ResolveBus([]string{"vcan0", "vcan1"}, o.open)
	require.True(t, res.Connected())
	assert.Equal(t, "vcan1", res.Interface)
	assert.Equal(t, 1, o.opened["vcan0"])
	assert.Equal(t, 1, o.opened["vcan1"])
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "vcan0", res.Failures[0].Interface)
	assert.Equal(t, errA, res.Failures[0].Err)
}

func TestResolveBusFirstWins(t *testing.T) {
	o := newOpenerStub(nil)

	res := ResolveBus([]string{"can0", "can1"}, o.open)
	assert.True(t, res.Connected())
	assert.Equal(t, "can0", res.Interface)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 0, o.opened["can1"])
}

func TestResolveBusAllFail(t *testing.T) {
	o := newOpenerStub(map[string]error{
		"can0": errors.New("down"),
		"can1": errors.New("down"),
	})

	res := ResolveBus([]string{"can0", "can1"}, o.open)
	assert.False(t, res.Connected())
	assert.Nil(t, res.Bus)
	assert.Equal(t, "", res.Interface)
	assert.Len(t, res.Failures, 2)
}

func TestResolveBusNoCandidates(t *testing.T) {
	res := ResolveBus(nil, newOpenerStub(nil).open)
	assert.False(t, res.Connected())
	assert.Empty(t, res.Failures)
}

func TestResolveBusNilBus(t *testing.T) {
	res := ResolveBus([]string{"can0"}, func(string) (CANBus, error) {
		return nil, nil
	})
	assert.False(t, res.Connected())
	require.Len(t, res.Failures, 1)
	assert.Error(t, res.Failures[0].Err)
}
