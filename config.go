package dashboard

import (
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jd3nn1s/dashboard/battery"
	"github.com/jd3nn1s/dashboard/forwarder"
	"github.com/jd3nn1s/dashboard/kalman"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CANInterfaceEnv overrides the configured interfaces when set.
const CANInterfaceEnv = "CAN_IFACE"

const (
	SensorINA219 = "ina219"
	SensorSerial = "serial"
	SensorNone   = "none"
)

type CANConfig struct {
	// Interfaces are tried in order after the explicit and environment choices.
	Interfaces     []string      `toml:"interfaces"`
	ReceiveTimeout time.Duration `toml:"receive_timeout"`
	RetryInterval  time.Duration `toml:"retry_interval"`
	// StaleAfter is the gap between speed samples after which the vehicle
	// is reported as stopped.
	StaleAfter time.Duration `toml:"stale_after"`
}

type BatteryConfig struct {
	Sensor string `toml:"sensor"`
	// Calibration names a preset; MinVoltage and MaxVoltage override it.
	Calibration  string        `toml:"calibration"`
	MinVoltage   float64       `toml:"min_voltage"`
	MaxVoltage   float64       `toml:"max_voltage"`
	PollInterval time.Duration `toml:"poll_interval"`
	I2CDevice    string        `toml:"i2c_device"`
	I2CAddress   uint16        `toml:"i2c_address"`
	SerialPort   string        `toml:"serial_port"`
	BaudRate     int           `toml:"baud_rate"`
}

type Config struct {
	CAN        CANConfig             `toml:"can"`
	Kalman     kalman.Config         `toml:"kalman"`
	Battery    BatteryConfig         `toml:"battery"`
	Thresholds Thresholds            `toml:"thresholds"`
	Redis      forwarder.RedisConfig `toml:"redis"`
	UDP        forwarder.UDPConfig   `toml:"udp"`
}

func DefaultConfig() Config {
	return Config{
		CAN: CANConfig{
			Interfaces:     []string{"can0", "can1"},
			ReceiveTimeout: time.Second,
			RetryInterval:  time.Second,
			StaleAfter:     500 * time.Millisecond,
		},
		Kalman: kalman.DefaultConfig(),
		Battery: BatteryConfig{
			Sensor:       SensorINA219,
			PollInterval: time.Second,
			I2CDevice:    "/dev/i2c-1",
			I2CAddress:   battery.AddressINA219Alternate,
			BaudRate:     9600,
		},
		Thresholds: DefaultThresholds(),
		Redis: forwarder.RedisConfig{
			Addr:    "127.0.0.1:6379",
			Key:     forwarder.DefaultRedisKey,
			Timeout: forwarder.DefaultRedisTimeout,
		},
		UDP: forwarder.UDPConfig{
			Server: "127.0.0.1",
			Port:   5000,
		},
	}
}

func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unable to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfigFile(fileName string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(fileName, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "unable to load configuration from %s", fileName)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) Validate() error {
	if cfg.CAN.ReceiveTimeout <= 0 {
		return errors.New("can receive_timeout must be positive")
	}
	if cfg.CAN.RetryInterval <= 0 {
		return errors.New("can retry_interval must be positive")
	}
	if cfg.CAN.StaleAfter <= 0 {
		return errors.New("can stale_after must be positive")
	}
	if cfg.Kalman.Period <= 0 {
		return errors.New("kalman nominal_period must be positive")
	}
	if cfg.Kalman.MeasurementVariance <= 0 || cfg.Kalman.ProcessVariance < 0 {
		return errors.Errorf("kalman variances out of range: process %v, measurement %v",
			cfg.Kalman.ProcessVariance, cfg.Kalman.MeasurementVariance)
	}
	switch cfg.Battery.Sensor {
	case SensorINA219, SensorSerial, SensorNone:
	default:
		return errors.Errorf("unknown battery sensor %q", cfg.Battery.Sensor)
	}
	if cfg.Battery.Sensor != SensorNone && cfg.Battery.PollInterval <= 0 {
		return errors.New("battery poll_interval must be positive")
	}
	if _, err := cfg.Battery.Calibrate(); err != nil {
		return err
	}
	if cfg.Thresholds.Speed < 0 || cfg.Thresholds.BatteryPercent < 0 || cfg.Thresholds.BatteryVoltage < 0 {
		return errors.New("thresholds must not be negative")
	}
	return nil
}

// Calibrate resolves the battery calibration from explicit bounds or a
// preset, defaulting to the dashboard preset.
func (b BatteryConfig) Calibrate() (battery.Calibration, error) {
	var c battery.Calibration
	if b.MinVoltage != 0 || b.MaxVoltage != 0 {
		c = battery.Calibration{MinVoltage: b.MinVoltage, MaxVoltage: b.MaxVoltage}
	} else {
		name := b.Calibration
		if name == "" {
			name = "dashboard"
		}
		var err error
		if c, err = battery.Preset(name); err != nil {
			return battery.Calibration{}, err
		}
	}
	if err := c.Validate(); err != nil {
		return battery.Calibration{}, err
	}
	return c, nil
}

func (b BatteryConfig) calibrationExplicit() bool {
	return b.Calibration != "" || b.MinVoltage != 0 || b.MaxVoltage != 0
}

func (cfg Config) warnDefaults() {
	if cfg.Battery.Sensor == SensorNone || cfg.Battery.calibrationExplicit() {
		return
	}
	log.WithField("min", battery.CalibrationDashboard.MinVoltage).
		WithField("max", battery.CalibrationDashboard.MaxVoltage).
		Warn("battery calibration not configured; board revisions use 9.0-12.6V or 11.0-12.6V, set [battery] calibration explicitly")
}

// BusCandidates orders the interfaces to try: the explicit choice, then the
// environment override, then the configured defaults. Duplicates and the
// placeholder "auto" are skipped.
func (cfg Config) BusCandidates(explicit, env string) []string {
	seen := make(map[string]bool)
	var candidates []string
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name == "" || name == "auto" || seen[name] {
			return
		}
		seen[name] = true
		candidates = append(candidates, name)
	}
	add(explicit)
	add(env)
	for _, name := range cfg.CAN.Interfaces {
		add(name)
	}
	return candidates
}
