package battery

import (
	"io"
	"io/ioutil"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestPercent(t *testing.T) {
	c := Calibration{MinVoltage: 9.0, MaxVoltage: 12.6}
	assert.InDelta(t, 50.0, c.Percent(10.8), 1e-9)
	assert.Equal(t, 0.0, c.Percent(9.0))
	assert.Equal(t, 0.0, c.Percent(3.3))
	assert.Equal(t, 100.0, c.Percent(12.6))
	assert.Equal(t, 100.0, c.Percent(14.2))

	assert.InDelta(t, 87.5, CalibrationUnified.Percent(12.4), 1e-9)
}

func TestCalibrationValidate(t *testing.T) {
	assert.NoError(t, CalibrationDashboard.Validate())
	assert.NoError(t, CalibrationUnified.Validate())
	assert.Error(t, Calibration{MinVoltage: 12, MaxVoltage: 12}.Validate())
	assert.Error(t, Calibration{MinVoltage: 12.6, MaxVoltage: 9}.Validate())
}

func TestPreset(t *testing.T) {
	c, err := Preset("unified")
	assert.NoError(t, err)
	assert.Equal(t, CalibrationUnified, c)

	_, err = Preset("lead-acid")
	assert.Error(t, err)
}

func TestSerialSensor(t *testing.T) {
	s := newSerialSensor(ioutil.NopCloser(strings.NewReader("\n12.31\ngarbage\n11.9V\n")))
	<-s.done

	// only the newest valid line is kept
	v, err := s.ReadVoltage()
	assert.NoError(t, err)
	assert.Equal(t, 11.9, v)

	_, err = s.ReadVoltage()
	assert.Error(t, err)
	assert.Equal(t, io.EOF, errors.Cause(err))
	assert.NoError(t, s.Close())
}

func TestSerialSensorLatestWins(t *testing.T) {
	r, w := io.Pipe()
	s := newSerialSensor(r)

	_, err := w.Write([]byte("12.1\n12.2\n12.3\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		v, err := s.ReadVoltage()
		return err == nil && v == 12.3
	}, time.Second, time.Millisecond)

	_, err = s.ReadVoltage()
	assert.Equal(t, ErrNoReading, err)
	assert.NoError(t, s.Close())
}

type idlePortStub struct {
	mu     sync.Mutex
	reads  int
	closed bool
}

// Read behaves like a port whose read timeout expired with no data.
func (p *idlePortStub) Read(b []byte) (int, error) {
	time.Sleep(time.Millisecond)
	p.mu.Lock()
	p.reads++
	p.mu.Unlock()
	return 0, nil
}

func (p *idlePortStub) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func TestSerialSensorIdlePort(t *testing.T) {
	port := &idlePortStub{}
	s := newSerialSensor(port)

	start := time.Now()
	_, err := s.ReadVoltage()
	assert.Equal(t, ErrNoReading, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// well past the point where a scanner would give up on empty reads
	assert.Eventually(t, func() bool {
		port.mu.Lock()
		defer port.mu.Unlock()
		return port.reads > 150
	}, 5*time.Second, 5*time.Millisecond)
	_, err = s.ReadVoltage()
	assert.Equal(t, ErrNoReading, err)

	start = time.Now()
	assert.NoError(t, s.Close())
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, port.closed)
}

func TestOpenSerialSensor(t *testing.T) {
	origOpen := serialOpen
	defer func() {
		serialOpen = origOpen
	}()

	var gotMode *serial.Mode
	serialOpen = func(port string, mode *serial.Mode) (io.ReadCloser, error) {
		gotMode = mode
		return ioutil.NopCloser(strings.NewReader("12.0\n")), nil
	}

	s, err := OpenSerialSensor("/dev/ttyUSB0", 9600)
	require.NoError(t, err)
	assert.Equal(t, 9600, gotMode.BaudRate)
	assert.Equal(t, 8, gotMode.DataBits)

	<-s.done
	v, err := s.ReadVoltage()
	assert.NoError(t, err)
	assert.Equal(t, 12.0, v)
}

func TestParseVoltageLine(t *testing.T) {
	v, err := parseVoltageLine("10.8 V")
	assert.NoError(t, err)
	assert.Equal(t, 10.8, v)

	_, err = parseVoltageLine("V")
	assert.Error(t, err)
}
