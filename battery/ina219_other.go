//go:build !linux

package battery

import (
	"github.com/pkg/errors"
)

type INA219 struct{}

func OpenINA219(device string, address uint16) (*INA219, error) {
	return nil, errors.New("ina219 requires linux i2c-dev")
}

func (s *INA219) ReadVoltage() (float64, error) {
	return 0, errors.New("ina219 requires linux i2c-dev")
}

func (s *INA219) Close() error {
	return nil
}
