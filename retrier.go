package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Retryable interface {
	Open(ctx context.Context) error
	Close() error
	Start(ctx context.Context) error
	Name() string
}

// retry keeps r running until ctx is cancelled, closing and reopening it
// after every error.
func retry(ctx context.Context, r Retryable, interval time.Duration) error {
	errStarting := errors.New("starting")
	err := errStarting
	for {
		select {
		case <-ctx.Done():
			if closeErr := r.Close(); closeErr != nil {
				log.WithError(closeErr).Warnf("%s: unable to close", r.Name())
			}
			return ctx.Err()
		default:
		}
		if err != nil {
			if err != errStarting {
				log.WithError(err).Errorf("%s: reconnecting due to error", r.Name())
				if err = r.Close(); err != nil {
					log.WithError(err).Warnf("%s: unable to close", r.Name())
				}
				select {
				case <-time.After(interval):
				case <-ctx.Done():
					continue
				}
			}
			err = r.Open(ctx)
			if err != nil {
				continue
			}
		}
		err = r.Start(ctx)
	}
}
