package dashboard

import (
	"sync"
	"sync/atomic"

	"github.com/jd3nn1s/dashboard/vehicle"
	log "github.com/sirupsen/logrus"
)

const subscriberBufferSize = 16

type subscriber struct {
	field vehicle.Field
	ch    chan vehicle.Change
}

// Hub fans changes out to in-process subscribers. A subscriber that is not
// keeping up misses changes rather than stalling the consumer loop.
type Hub struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]subscriber
	dropped atomic.Uint64
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]subscriber),
	}
}

// Subscribe returns a channel receiving every change to field and a func
// that cancels the subscription and closes the channel.
func (h *Hub) Subscribe(field vehicle.Field, buffer int) (<-chan vehicle.Change, func()) {
	ch := make(chan vehicle.Change, buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = subscriber{field: field, ch: ch}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Forward(change vehicle.Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.field != change.Field {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			h.dropped.Add(1)
			log.WithField("field", change.Field).Debug("subscriber full, change dropped")
		}
	}
	return nil
}

// Dropped is the number of changes not delivered to full subscribers.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
