package dashboard

import (
	"context"

	"github.com/jd3nn1s/dashboard/vehicle"
	log "github.com/sirupsen/logrus"
)

// SetGear validates code and applies it through the consumer loop. Setting
// the current gear is accepted without publishing anything.
func (d *Dashboard) SetGear(ctx context.Context, code string) error {
	g, err := vehicle.ParseGear(code)
	if err != nil {
		log.WithField("code", code).WithError(err).Warn("gear command rejected")
		return err
	}
	_, err = d.submit(ctx, gearSample(g))
	return err
}

// SetTurnSignal accepts off, left, right or hazard in any case.
func (d *Dashboard) SetTurnSignal(ctx context.Context, mode string) error {
	t, err := vehicle.ParseTurnSignal(mode)
	if err != nil {
		log.WithField("mode", mode).WithError(err).Warn("turn signal command rejected")
		return err
	}
	_, err = d.submit(ctx, turnSignalSample(t))
	return err
}

func (d *Dashboard) submit(ctx context.Context, s sample) (bool, error) {
	c := command{
		sample: s,
		reply:  make(chan bool, 1),
	}
	select {
	case d.commands <- c:
	case <-d.done:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case changed := <-c.reply:
		return changed, nil
	case <-d.done:
		return false, ErrStopped
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
