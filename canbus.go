package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/jd3nn1s/dashboard/dashcan"
	"github.com/jd3nn1s/dashboard/kalman"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// canBusRetryable reads frames from the first working interface. The speed
// filter is only touched by the goroutine running Start.
type canBusRetryable struct {
	candidates     []string
	open           BusOpener
	receiveTimeout time.Duration
	staleAfter     time.Duration
	period         float64
	filter         *kalman.SpeedFilter
	sendChan       chan<- sample
	now            func() time.Time

	mu    sync.Mutex
	c     CANBus
	iface string

	lastSpeedAt  time.Time
	stopReported bool
}

func (bus *canBusRetryable) Name() string {
	return "canbus"
}

func (bus *canBusRetryable) Open(ctx context.Context) error {
	res := ResolveBus(bus.candidates, bus.open)
	if !res.Connected() {
		return errors.Wrapf(ErrNoBus, "tried %v", bus.candidates)
	}
	bus.mu.Lock()
	bus.c = res.Bus
	bus.iface = res.Interface
	bus.mu.Unlock()

	bus.lastSpeedAt = time.Time{}
	bus.filter.Reset()
	handoff(ctx, bus.sendChan, busSample(true))
	return nil
}

func (bus *canBusRetryable) Close() error {
	bus.mu.Lock()
	c := bus.c
	bus.c = nil
	bus.iface = ""
	bus.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

// CANBus returns the current connection, or nil when disconnected.
func (bus *canBusRetryable) CANBus() CANBus {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.c
}

func (bus *canBusRetryable) Start(ctx context.Context) error {
	c := bus.CANBus()
	if c == nil {
		return dashcan.ErrNotConnected
	}
	for {
		f, err := c.Receive(ctx, bus.receiveTimeout)
		switch {
		case err == nil:
			bus.handleFrame(ctx, f)
		case errors.Cause(err) == dashcan.ErrTimeout:
			bus.checkStale(ctx)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			handoff(ctx, bus.sendChan, busSample(false))
			return errors.Wrap(err, "CAN receive failed")
		}
	}
}

func (bus *canBusRetryable) handleFrame(ctx context.Context, f dashcan.Frame) {
	ev, ok := dashcan.Decode(f)
	if !ok {
		return
	}
	switch ev.Kind {
	case dashcan.EventSpeed:
		bus.handleSpeed(ctx, float64(ev.Speed))
	case dashcan.EventGear:
		handoff(ctx, bus.sendChan, gearSample(ev.Gear))
	case dashcan.EventTurnSignal:
		handoff(ctx, bus.sendChan, turnSignalSample(ev.TurnSignal))
	}
}

func (bus *canBusRetryable) handleSpeed(ctx context.Context, raw float64) {
	now := bus.clock()
	var speed float64
	switch {
	case bus.lastSpeedAt.IsZero():
		speed = bus.filter.Update(raw, bus.period)
	case now.Sub(bus.lastSpeedAt) > bus.staleAfter:
		log.WithField("gap", now.Sub(bus.lastSpeedAt)).Debug("stale speed sample, resetting filter")
		bus.filter.Reset()
		speed = 0
	default:
		dt := now.Sub(bus.lastSpeedAt).Seconds()
		if dt <= 0 {
			dt = bus.period
		}
		speed = bus.filter.Update(raw, dt)
	}
	bus.lastSpeedAt = now
	bus.stopReported = false
	log.WithField("raw", raw).
		WithField("filtered", speed).
		Debug("speed sample")
	handoff(ctx, bus.sendChan, speedSample(speed))
}

// checkStale reports a stopped vehicle once speed frames have gone quiet.
func (bus *canBusRetryable) checkStale(ctx context.Context) {
	if bus.stopReported || bus.lastSpeedAt.IsZero() ||
		bus.clock().Sub(bus.lastSpeedAt) <= bus.staleAfter {
		return
	}
	bus.stopReported = true
	bus.filter.Reset()
	handoff(ctx, bus.sendChan, speedSample(0))
}

func (bus *canBusRetryable) clock() time.Time {
	if bus.now != nil {
		return bus.now()
	}
	return time.Now()
}

func runCAN(ctx context.Context, bus *canBusRetryable, interval time.Duration) {
	err := retry(ctx, bus, interval)
	if err != nil && errors.Cause(err) != context.Canceled {
		log.Errorf("canbus done: %v", err)
	}
}
