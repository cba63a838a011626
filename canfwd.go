package dashboard

import (
	"github.com/jd3nn1s/dashboard/dashcan"
	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// busEcho writes commanded gear and turn signal changes back onto the bus
// so other modules see them.
type busEcho struct {
	canBus *canBusRetryable
}

func (e *busEcho) Forward(change vehicle.Change) error {
	var f dashcan.Frame
	switch change.Field {
	case vehicle.FieldGear:
		f = dashcan.GearFrame(change.State.Gear)
	case vehicle.FieldTurnSignal:
		f = dashcan.TurnSignalFrame(change.State.TurnSignal)
	default:
		return nil
	}
	if !change.State.BusConnected {
		return nil
	}
	c := e.canBus.CANBus()
	if c == nil {
		return errors.Wrap(dashcan.ErrNotConnected, "unable to echo command")
	}
	if err := c.Send(f); err != nil {
		return errors.Wrapf(err, "unable to send %s to CAN bus", change.Field)
	}
	return nil
}

func (d *Dashboard) echo(field vehicle.Field) {
	change := vehicle.Change{
		Field: field,
		State: d.state,
	}
	if err := d.busEcho.Forward(change); err != nil {
		log.WithError(err).
			WithField("field", field).
			Warn("command applied but not echoed")
	}
}
