package battery

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	i2cSlave = 0x0703

	ina219BusVoltageRegister = 0x02
	// bus voltage LSB is 4mV, stored in bits 15..3
	ina219BusVoltageLSB = 0.004
	// set when the conversion overflowed and the reading is meaningless
	ina219OverflowBit = 0x0001
)

// INA219 reads pack voltage from an INA219 current/voltage monitor on a
// Linux i2c-dev bus.
type INA219 struct {
	mu   sync.Mutex
	file *os.File
}

func OpenINA219(device string, address uint16) (*INA219, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open i2c device %s", device)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, int(address)); err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "unable to select i2c address 0x%02X", address)
	}
	return &INA219{file: f}, nil
}

func (s *INA219) ReadVoltage() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write([]byte{ina219BusVoltageRegister}); err != nil {
		return 0, errors.Wrap(err, "unable to select bus voltage register")
	}
	buf := make([]byte, 2)
	if _, err := s.file.Read(buf); err != nil {
		return 0, errors.Wrap(err, "unable to read bus voltage register")
	}
	return ina219BusVoltage(binary.BigEndian.Uint16(buf))
}

func (s *INA219) Close() error {
	return s.file.Close()
}

func ina219BusVoltage(raw uint16) (float64, error) {
	if raw&ina219OverflowBit != 0 {
		return 0, errors.New("ina219 math overflow")
	}
	return float64(raw>>3) * ina219BusVoltageLSB, nil
}
