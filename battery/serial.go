package battery

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"
)

const serialReadTimeout = 500 * time.Millisecond

// to allow testing
var serialOpen = func(port string, mode *serial.Mode) (io.ReadCloser, error) {
	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(serialReadTimeout); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

var ErrNoReading = errors.New("no new voltage reading")

// SerialSensor reads a voltage monitor that prints one decimal voltage per
// line, e.g. "12.31\n". A background reader keeps the newest valid line, so
// ReadVoltage never waits on the port.
type SerialSensor struct {
	port io.ReadCloser
	done chan struct{}

	mu     sync.Mutex
	latest float64
	fresh  bool
	err    error
	closed bool
}

func OpenSerialSensor(port string, baudRate int) (*SerialSensor, error) {
	p, err := serialOpen(port, &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open serial port %s", port)
	}
	return newSerialSensor(p), nil
}

func newSerialSensor(port io.ReadCloser) *SerialSensor {
	s := &SerialSensor{
		port: port,
		done: make(chan struct{}),
	}
	go s.monitor()
	return s
}

// idleReader hides read timeouts, which the port reports as (0, nil), from
// the scanner until the sensor is closed.
type idleReader struct {
	s *SerialSensor
}

func (r idleReader) Read(p []byte) (int, error) {
	for {
		n, err := r.s.port.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if r.s.isClosed() {
			return 0, io.EOF
		}
	}
}

func (s *SerialSensor) monitor() {
	defer close(s.done)
	scan := bufio.NewScanner(idleReader{s: s})
	for scan.Scan() {
		line := strings.TrimSpace(scan.Text())
		if line == "" {
			continue
		}
		v, err := parseVoltageLine(line)
		if err != nil {
			log.WithField("line", line).Debug(err)
			continue
		}
		s.mu.Lock()
		s.latest = v
		s.fresh = true
		s.mu.Unlock()
	}
	err := scan.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *SerialSensor) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// ReadVoltage returns the newest line received since the previous call.
func (s *SerialSensor) ReadVoltage() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fresh {
		s.fresh = false
		return s.latest, nil
	}
	if s.err != nil {
		return 0, errors.Wrap(s.err, "unable to read voltage line")
	}
	return 0, ErrNoReading
}

func (s *SerialSensor) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	err := s.port.Close()
	<-s.done
	return err
}

// parseVoltageLine accepts "12.31" or "12.31V".
func parseVoltageLine(line string) (float64, error) {
	line = strings.TrimSuffix(strings.TrimSuffix(line, "V"), "v")
	v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed voltage line %q", line)
	}
	return v, nil
}
