package forwarder

import (
	"context"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Commander interface {
	SetGear(ctx context.Context, code string) error
	SetTurnSignal(ctx context.Context, mode string) error
}

type redisPubSub interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type commandKind int

const (
	commandGear commandKind = iota + 1
	commandTurnSignal
)

// verbs accepted on the command channel; the set- variants are kept for
// older head unit clients.
var commandVerbs = map[string]commandKind{
	"gear":            commandGear,
	"setgear":         commandGear,
	"set-gear":        commandGear,
	"turn-signal":     commandTurnSignal,
	"turnsignal":      commandTurnSignal,
	"setturnsignal":   commandTurnSignal,
	"set-turn-signal": commandTurnSignal,
}

// CommandListener applies "<verb> <argument>" messages published on
// <key>:command and reports rejected ones on <key>:rejected.
type CommandListener struct {
	client    redisPubSub
	key       string
	commander Commander
}

func NewCommandListener(client *redis.Client, config RedisConfig, commander Commander) *CommandListener {
	return newCommandListener(client, config, commander)
}

func newCommandListener(client redisPubSub, config RedisConfig, commander Commander) *CommandListener {
	key := config.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return &CommandListener{
		client:    client,
		key:       key,
		commander: commander,
	}
}

func (l *CommandListener) Run(ctx context.Context) error {
	sub := l.client.Subscribe(ctx, l.key+":command")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("command subscription closed")
			}
			if err := l.handle(ctx, msg.Payload); err != nil {
				log.WithError(err).WithField("command", msg.Payload).Warn("rejected command")
			}
		}
	}
}

func (l *CommandListener) handle(ctx context.Context, payload string) error {
	kind, arg, err := parseCommand(payload)
	if err == nil {
		switch kind {
		case commandGear:
			err = l.commander.SetGear(ctx, arg)
		case commandTurnSignal:
			err = l.commander.SetTurnSignal(ctx, arg)
		}
	}
	if err != nil {
		if pubErr := l.client.Publish(ctx, l.key+":rejected", payload+": "+err.Error()).Err(); pubErr != nil {
			log.WithError(pubErr).Warn("unable to publish command rejection")
		}
	}
	return err
}

func parseCommand(payload string) (commandKind, string, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return 0, "", errors.Errorf("malformed command %q", payload)
	}
	kind, ok := commandVerbs[strings.ToLower(fields[0])]
	if !ok {
		return 0, "", errors.Errorf("unknown command %q", fields[0])
	}
	return kind, fields[1], nil
}
