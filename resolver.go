package dashboard

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrNoBus = errors.New("no can interface could be opened")

type BusOpener func(name string) (CANBus, error)

type BusFailure struct {
	Interface string
	Err       error
}

// BusResolution is the outcome of trying each candidate once. Bus is nil
// when every candidate failed.
type BusResolution struct {
	Bus       CANBus
	Interface string
	Failures  []BusFailure
}

func (r BusResolution) Connected() bool {
	return r.Bus != nil
}

// ResolveBus opens the first candidate that works. Failures are logged and
// recorded; running out of candidates is not an error.
func ResolveBus(candidates []string, open BusOpener) BusResolution {
	res := BusResolution{}
	for _, name := range candidates {
		bus, err := open(name)
		if err == nil && bus == nil {
			err = errors.New("opener returned no bus")
		}
		if err != nil {
			log.WithField("iface", name).
				WithError(err).
				Warn("CAN open failed")
			res.Failures = append(res.Failures, BusFailure{
				Interface: name,
				Err:       err,
			})
			continue
		}
		log.WithField("iface", name).Info("CAN connected")
		res.Bus = bus
		res.Interface = name
		return res
	}
	log.WithField("candidates", candidates).Warn("CAN unavailable, continuing without bus")
	return res
}
