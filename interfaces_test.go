package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/jd3nn1s/dashboard/dashcan"
	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/pkg/errors"
)

type canBusStub struct {
	frameChan chan dashcan.Frame
	errChan   chan error

	mu      sync.Mutex
	sent    []dashcan.Frame
	sendErr error
	closed  bool
}

func createCANBusStub() *canBusStub {
	return &canBusStub{
		frameChan: make(chan dashcan.Frame, 8),
		errChan:   make(chan error, 1),
	}
}

func (c *canBusStub) Receive(ctx context.Context, timeout time.Duration) (dashcan.Frame, error) {
	select {
	case f := <-c.frameChan:
		return f, nil
	case err := <-c.errChan:
		return dashcan.Frame{}, err
	case <-time.After(timeout):
		return dashcan.Frame{}, dashcan.ErrTimeout
	case <-ctx.Done():
		return dashcan.Frame{}, ctx.Err()
	}
}

func (c *canBusStub) Send(f dashcan.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *canBusStub) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *canBusStub) Sent() []dashcan.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]dashcan.Frame(nil), c.sent...)
}

type forwarderStub struct {
	mu      sync.Mutex
	changes []vehicle.Change
	err     error
}

func (fwd *forwarderStub) Forward(change vehicle.Change) error {
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	fwd.changes = append(fwd.changes, change)
	return fwd.err
}

func (fwd *forwarderStub) Changes(field vehicle.Field) []vehicle.Change {
	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	var out []vehicle.Change
	for _, c := range fwd.changes {
		if c.Field == field {
			out = append(out, c)
		}
	}
	return out
}

type reading struct {
	voltage float64
	err     error
}

type sensorStub struct {
	readings []reading
	closed   int
}

func (s *sensorStub) ReadVoltage() (float64, error) {
	if len(s.readings) == 0 {
		return 0, errors.New("no reading")
	}
	r := s.readings[0]
	s.readings = s.readings[1:]
	return r.voltage, r.err
}

func (s *sensorStub) Close() error {
	s.closed++
	return nil
}

// fakeClock is advanced by hand in speed filter tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
