package dashboard

import (
	"context"
	"time"

	"github.com/jd3nn1s/dashboard/dashcan"
	"github.com/jd3nn1s/dashboard/vehicle"
)

type CANBus interface {
	Close() error
	Receive(ctx context.Context, timeout time.Duration) (dashcan.Frame, error)
	Send(dashcan.Frame) error
}

type Forwarder interface {
	Forward(change vehicle.Change) error
}
