package dashboard

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/jd3nn1s/dashboard/battery"
	"github.com/jd3nn1s/dashboard/dashcan"
	"github.com/jd3nn1s/dashboard/vehicle"
	log "github.com/sirupsen/logrus"
)

const (
	simFrameInterval = 50 * time.Millisecond
	simMaxSpeed      = 250.0
)

var simGears = []vehicle.Gear{
	vehicle.GearPark,
	vehicle.GearReverse,
	vehicle.GearNeutral,
	vehicle.GearDrive,
	vehicle.GearSport,
}

// simulatedBus produces speed, gear and turn signal frames as a car pulling
// away and slowing down would.
type simulatedBus struct {
	start time.Time
	tick  int

	mu     sync.Mutex
	closed bool
}

func openSimulatedBus(name string) (CANBus, error) {
	log.WithField("iface", name).Info("simulated CAN bus opened")
	return &simulatedBus{start: time.Now()}, nil
}

func (b *simulatedBus) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *simulatedBus) Receive(ctx context.Context, timeout time.Duration) (dashcan.Frame, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return dashcan.Frame{}, dashcan.ErrClosed
	}

	select {
	case <-time.After(simFrameInterval):
	case <-ctx.Done():
		return dashcan.Frame{}, ctx.Err()
	}
	b.tick++

	elapsed := time.Since(b.start).Seconds()
	switch {
	case b.tick%100 == 0:
		g := simGears[(b.tick/100)%len(simGears)]
		return dashcan.GearFrame(g), nil
	case b.tick%60 == 0:
		t := vehicle.TurnSignal((b.tick / 60) % 4)
		return dashcan.TurnSignalFrame(t), nil
	}
	speed := simMaxSpeed / 2 * (1 - math.Cos(elapsed/5))
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, uint16(speed))
	return dashcan.Frame{ID: dashcan.FrameSpeed, Data: data}, nil
}

func (b *simulatedBus) Send(f dashcan.Frame) error {
	log.WithField("canID", f.ID).WithField("data", f.Data).Debug("simulated CAN send")
	return nil
}

// simulatedSensor swings the battery between 11.5 and 12.5 V.
type simulatedSensor struct {
	start time.Time
}

func openSimulatedSensor() (battery.Sensor, error) {
	return &simulatedSensor{start: time.Now()}, nil
}

func (s *simulatedSensor) ReadVoltage() (float64, error) {
	return 12.0 + 0.5*math.Sin(time.Since(s.start).Seconds()/30), nil
}

func (s *simulatedSensor) Close() error {
	return nil
}
