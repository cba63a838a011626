package forwarder

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jd3nn1s/dashboard/vehicle"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRedisKey     = "dashboard"
	DefaultRedisTimeout = 2 * time.Second
)

type RedisConfig struct {
	Enabled bool          `toml:"enabled"`
	Addr    string        `toml:"addr"`
	Key     string        `toml:"key"`
	Timeout time.Duration `toml:"timeout"`
}

type redisClient interface {
	Pipeline() redis.Pipeliner
	Close() error
}

// Redis mirrors the state into a hash and announces each change on a
// channel named after the hash, with the field name as payload.
// Forward only records the change; Start writes whatever is pending, so a
// slow server coalesces changes instead of holding up the caller.
type Redis struct {
	client  redisClient
	key     string
	timeout time.Duration

	mu      sync.Mutex
	pending map[vehicle.Field]string
	kick    chan struct{}
}

func NewRedisClient(ctx context.Context, config RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
	})

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(connectCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "unable to connect to redis at %s", config.Addr)
	}
	log.WithField("addr", config.Addr).Info("connected to redis")
	return client, nil
}

func NewRedis(client *redis.Client, config RedisConfig) *Redis {
	return newRedis(client, config)
}

func newRedis(client redisClient, config RedisConfig) *Redis {
	r := &Redis{
		client:  client,
		key:     config.Key,
		timeout: config.Timeout,
		pending: make(map[vehicle.Field]string),
		kick:    make(chan struct{}, 1),
	}
	if r.key == "" {
		r.key = DefaultRedisKey
	}
	if r.timeout <= 0 {
		r.timeout = DefaultRedisTimeout
	}
	return r
}

func (r *Redis) Forward(change vehicle.Change) error {
	r.mu.Lock()
	r.pending[change.Field] = change.State.FormatValue(change.Field)
	r.mu.Unlock()
	select {
	case r.kick <- struct{}{}:
	default:
	}
	return nil
}

func (r *Redis) Start(ctx context.Context) error {
	for {
		select {
		case <-r.kick:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := r.flush(ctx); err != nil {
			log.WithError(err).Error("unable to publish state to redis")
		}
	}
}

// flush writes every pending field and announces it, in one pipeline.
// Changes that fail to send are dropped; the next change of the same field
// rewrites it.
func (r *Redis) flush(ctx context.Context) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[vehicle.Field]string)
	r.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	pipe := r.client.Pipeline()
	for _, f := range vehicle.Fields {
		value, ok := pending[f]
		if !ok {
			continue
		}
		pipe.HSet(ctx, r.key, f.String(), value)
		pipe.Publish(ctx, r.key, f.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "unable to publish %d fields", len(pending))
	}
	return nil
}

// WriteState stores every field without announcing it, so readers that
// start before the first change see defaults.
func (r *Redis) WriteState(state vehicle.State) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	values := make(map[string]interface{}, len(vehicle.Fields))
	for _, f := range vehicle.Fields {
		values[f.String()] = state.FormatValue(f)
	}
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, r.key, values)
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrap(err, "unable to write initial state")
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
