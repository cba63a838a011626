package dashboard

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jd3nn1s/dashboard/battery"
	"github.com/jd3nn1s/dashboard/dashcan"
	"github.com/jd3nn1s/dashboard/kalman"
	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const sampleBufferSize = 64

var ErrStopped = errors.New("dashboard stopped")

// to allow testing
var canBusConnect = func(name string) (CANBus, error) {
	c, err := dashcan.Connect(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Dashboard owns the vehicle state. Workers hand their values to it over
// samples, external callers over commands, and only the goroutine running
// CheckChannels applies them and publishes changes.
type Dashboard struct {
	cfg      Config
	testMode bool

	detector   *ChangeDetector
	state      vehicle.State
	snapshot   atomic.Pointer[vehicle.State]
	forwarders []Forwarder
	hub        *Hub

	samples  chan sample
	commands chan command
	done     chan struct{}

	canBus  *canBusRetryable
	busEcho *busEcho
	battery *batteryPoller

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a dashboard that will try the given CAN interfaces in order.
func New(cfg Config, candidates []string) (*Dashboard, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.warnDefaults()

	d := &Dashboard{
		cfg:      cfg,
		detector: NewChangeDetector(cfg.Thresholds),
		state:    vehicle.InitialState(),
		hub:      NewHub(),
		samples:  make(chan sample, sampleBufferSize),
		commands: make(chan command),
		done:     make(chan struct{}),
	}
	d.storeSnapshot()
	d.forwarders = []Forwarder{d.hub}
	d.canBus = &canBusRetryable{
		candidates:     candidates,
		open:           canBusConnect,
		receiveTimeout: cfg.CAN.ReceiveTimeout,
		staleAfter:     cfg.CAN.StaleAfter,
		period:         cfg.Kalman.Period,
		filter:         kalman.NewSpeedFilter(cfg.Kalman),
		sendChan:       d.samples,
	}
	d.busEcho = &busEcho{canBus: d.canBus}
	return d, nil
}

func (d *Dashboard) AddForwarder(fwd Forwarder) {
	d.forwarders = append(d.forwarders, fwd)
}

// SetTestMode replaces the bus and battery sensor with simulated ones.
// It must be called before Start.
func (d *Dashboard) SetTestMode(enabled bool) {
	d.testMode = enabled
}

// State returns the last published state.
func (d *Dashboard) State() vehicle.State {
	return *d.snapshot.Load()
}

func (d *Dashboard) Subscribe(field vehicle.Field) (<-chan vehicle.Change, func()) {
	return d.hub.Subscribe(field, subscriberBufferSize)
}

func (d *Dashboard) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)

	sensorOpen, err := d.sensorOpener()
	if err != nil {
		log.WithError(err).Warn("battery monitoring disabled")
	}
	if d.testMode {
		log.Info("test mode: simulating bus and battery")
		d.canBus.open = openSimulatedBus
		sensorOpen = openSimulatedSensor
		if len(d.canBus.candidates) == 0 {
			d.canBus.candidates = []string{"sim0"}
		}
	}
	if sensorOpen != nil {
		calibration, _ := d.cfg.Battery.Calibrate()
		d.battery = &batteryPoller{
			open:        sensorOpen,
			calibration: calibration,
			interval:    d.cfg.Battery.PollInterval,
			sendChan:    d.samples,
		}
	}

	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		d.Run(ctx)
	}()
	go func() {
		defer d.wg.Done()
		runCAN(ctx, d.canBus, d.cfg.CAN.RetryInterval)
	}()
	if d.battery != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.battery.Run(ctx)
		}()
	}
}

// Stop cancels the workers and waits for them to exit.
func (d *Dashboard) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
	log.Info("dashboard stopped")
}

// Run applies samples and commands until ctx is cancelled.
func (d *Dashboard) Run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.CheckChannels(ctx)
	}
}

// CheckChannels applies the next sample or command and reports whether a
// change was published.
func (d *Dashboard) CheckChannels(ctx context.Context) (changed bool) {
	select {
	case s := <-d.samples:
		return d.apply(s)
	case c := <-d.commands:
		changed = d.apply(c.sample)
		if changed {
			d.echo(c.sample.field)
		}
		c.reply <- changed
		return changed
	case <-ctx.Done():
		return false
	}
}

func (d *Dashboard) apply(s sample) bool {
	candidate := d.state
	s.assign(&candidate)
	if !d.detector.Changed(s.field, d.state, candidate) {
		return false
	}
	d.state = candidate
	d.storeSnapshot()
	d.publish(s.field)
	return true
}

func (d *Dashboard) storeSnapshot() {
	state := d.state
	d.snapshot.Store(&state)
}

func (d *Dashboard) publish(field vehicle.Field) {
	change := vehicle.Change{
		Field: field,
		State: d.state,
	}
	log.WithField("field", field).
		WithField("value", change.Value()).
		Debug("publishing change")
	for _, fwd := range d.forwarders {
		if err := fwd.Forward(change); err != nil {
			log.WithError(err).
				WithField("field", field).
				Warn("unable to forward change")
		}
	}
}

func (d *Dashboard) sensorOpener() (func() (battery.Sensor, error), error) {
	b := d.cfg.Battery
	switch b.Sensor {
	case SensorINA219:
		return func() (battery.Sensor, error) {
			return battery.OpenINA219(b.I2CDevice, b.I2CAddress)
		}, nil
	case SensorSerial:
		if b.SerialPort == "" {
			return nil, errors.New("battery serial_port not configured")
		}
		return func() (battery.Sensor, error) {
			return battery.OpenSerialSensor(b.SerialPort, b.BaudRate)
		}, nil
	}
	return nil, nil
}
