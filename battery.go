package dashboard

import (
	"context"
	"time"

	"github.com/jd3nn1s/dashboard/battery"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// batteryPoller reads the voltage sensor every interval. A failed read
// leaves the published values untouched and reopens the sensor.
type batteryPoller struct {
	open        func() (battery.Sensor, error)
	calibration battery.Calibration
	interval    time.Duration
	sendChan    chan<- sample

	sensor battery.Sensor
}

func (p *batteryPoller) Name() string {
	return "battery"
}

func (p *batteryPoller) Open(ctx context.Context) error {
	s, err := p.open()
	if err != nil {
		return errors.Wrap(err, "unable to open battery sensor")
	}
	p.sensor = s
	return nil
}

func (p *batteryPoller) Close() error {
	if p.sensor == nil {
		return nil
	}
	err := p.sensor.Close()
	p.sensor = nil
	return err
}

func (p *batteryPoller) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.poll(ctx); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *batteryPoller) poll(ctx context.Context) error {
	v, err := p.sensor.ReadVoltage()
	if errors.Cause(err) == battery.ErrNoReading {
		log.Debug("no new battery reading, keeping previous value")
		return nil
	}
	if err != nil {
		log.WithError(err).Warn("battery read failed, keeping previous value")
		return errors.Wrap(err, "battery read failed")
	}
	percent := p.calibration.Percent(v)
	log.WithField("voltage", v).
		WithField("percent", percent).
		Debug("battery sample")
	if !handoff(ctx, p.sendChan, batteryVoltageSample(v)) {
		return ctx.Err()
	}
	if !handoff(ctx, p.sendChan, batteryPercentSample(percent)) {
		return ctx.Err()
	}
	return nil
}

func (p *batteryPoller) Run(ctx context.Context) {
	err := retry(ctx, p, p.interval)
	if err != nil && errors.Cause(err) != context.Canceled {
		log.Errorf("battery done: %v", err)
	}
}
