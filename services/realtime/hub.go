package realtimesvc

import (
	"sync"

	"github.com/kazimoto/tarefa/core"
)

const subscriberBuffer = 16

// Hub is an in-process core.Broadcaster: a stand-in for the managed
// realtime channel. Subscribers that fall behind drop messages rather than
// block the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string][]chan interface{}
}

var _ core.Broadcaster = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan interface{})}
}

// Subscribe registers a listener on a topic and returns its channel.
func (h *Hub) Subscribe(topic string) <-chan interface{} {
	ch := make(chan interface{}, subscriberBuffer)
	h.mu.Lock()
	h.subs[topic] = append(h.subs[topic], ch)
	h.mu.Unlock()
	return ch
}

func (h *Hub) Broadcast(topic string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[topic] {
		select {
		case ch <- payload:
		default: // slow subscriber, drop
		}
	}
}

type nopBroadcaster struct{}

var _ core.Broadcaster = nopBroadcaster{}

// NewNopBroadcaster returns a Broadcaster that discards everything.
func NewNopBroadcaster() core.Broadcaster { return nopBroadcaster{} }

func (nopBroadcaster) Broadcast(string, interface{}) {}
