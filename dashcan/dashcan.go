package dashcan

import (
	"context"
	"sync"
	"time"

	"github.com/brutella/can"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const frameBufferSize = 64

var (
	ErrTimeout      = errors.New("timed out waiting for can frame")
	ErrClosed       = errors.New("can bus closed")
	ErrNotConnected = errors.New("can bus not connected")
)

type CANBus interface {
	SubscribeFunc(can.HandlerFunc)
	ConnectAndPublish() error
	Disconnect() error
	Publish(can.Frame) error
}

// to allow testing
var newBus = func(name string) (CANBus, error) {
	return can.NewBusForInterfaceWithName(name)
}

// Connection reads frames from a SocketCAN interface into a buffer that
// Receive drains with a deadline.
type Connection struct {
	name   string
	bus    CANBus
	frames chan Frame
	done   chan struct{}

	closeOnce sync.Once
	closeErr  error
	mu        sync.Mutex
	err       error
	dropped   uint64
}

func Connect(name string) (*Connection, error) {
	bus, err := newBus(name)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open can interface %s", name)
	}

	c := &Connection{
		name:   name,
		bus:    bus,
		frames: make(chan Frame, frameBufferSize),
		done:   make(chan struct{}),
	}
	bus.SubscribeFunc(c.handleFrame)
	go c.publish()
	log.WithField("iface", name).Info("CAN bus opened and subscribed")
	return c, nil
}

func (c *Connection) Name() string {
	return c.name
}

func (c *Connection) publish() {
	err := c.bus.ConnectAndPublish()
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
	close(c.done)
}

// Receive waits up to timeout for the next frame. It returns ErrTimeout when
// nothing arrived and the reader's error once the interface has gone away.
func (c *Connection) Receive(ctx context.Context, timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-c.frames:
		return f, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.err != nil {
			return Frame{}, errors.Wrapf(c.err, "can bus %s stopped", c.name)
		}
		return Frame{}, ErrClosed
	case <-timer.C:
		return Frame{}, ErrTimeout
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

func (c *Connection) Send(f Frame) error {
	if c.bus == nil {
		return ErrNotConnected
	}
	out, err := f.toCAN()
	if err != nil {
		return err
	}
	log.WithField("canID", f.ID).
		WithField("data", f.Data).
		Debug("sending frame over canbus")
	return errors.Wrapf(c.bus.Publish(out), "unable to send frame 0x%03X", f.ID)
}

func (c *Connection) Close() error {
	if c.bus == nil {
		return ErrNotConnected
	}
	c.closeOnce.Do(func() {
		c.closeErr = c.bus.Disconnect()
	})
	return c.closeErr
}

// Dropped reports how many frames were discarded because the buffer was full.
func (c *Connection) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Connection) handleFrame(frame can.Frame) {
	log.WithField("canID", frame.ID).
		WithField("length", frame.Length).
		Debug("received canbus frame")

	select {
	case c.frames <- fromCAN(frame):
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		log.WithField("canID", frame.ID).Warn("frame buffer full, dropping frame")
	}
}
