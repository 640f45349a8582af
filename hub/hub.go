// Package hub implements the master-side broadcast fan-out: each published
// ServerMessage is copied into one bounded subscriber channel per
// connected client, with a one-shot stop notifier per client and isolation
// between clients on termination.
package hub

import (
	"sync"

	"github.com/inputbridge/kmf"
)

// MessageKind discriminates a ServerMessage's payload.
type MessageKind int

const (
	MsgAction MessageKind = iota
	MsgFile
	MsgQuit
)

// ServerMessage is published by the driver loop, the host UI, or the
// master's own command handling, and fanned out to every connected
// client's subscriber channel.
type ServerMessage struct {
	Kind     MessageKind
	Action   kmf.GenericAction
	FilePath string
}

// Hub is a typed broadcast channel with a fixed per-subscriber capacity.
// One producer side publishes; each accepted client owns a subscription
// and a stop notifier, both removed when its task exits — removal from
// either mapping is always a no-op if already absent.
type Hub struct {
	mu       sync.Mutex
	capacity int
	closed   bool

	subscribers map[string]chan ServerMessage
	stops       map[string]chan struct{}
}

// New builds a Hub whose per-subscriber channels have the given capacity.
func New(capacity int) *Hub {
	if capacity <= 0 {
		capacity = kmf.DefaultBroadcastCapacity
	}
	return &Hub{
		capacity:    capacity,
		subscribers: make(map[string]chan ServerMessage),
		stops:       make(map[string]chan struct{}),
	}
}

// Subscribe registers a new client identifier and returns its message
// channel and stop notifier. Calling Subscribe twice for the same id
// replaces the previous subscription.
func (h *Hub) Subscribe(id string) (<-chan ServerMessage, <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan ServerMessage, h.capacity)
	stop := make(chan struct{})
	h.subscribers[id] = ch
	h.stops[id] = stop
	return ch, stop
}

// Unsubscribe removes a client's subscription and stop notifier. It is
// always safe to call, including for an id that was never subscribed or
// was already removed — double removal is explicitly a no-op, never an
// error, so that a handler racing its own cleanup against a hub-initiated
// drop never trips an invariant.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, id)
	delete(h.stops, id)
}

// Stop fires the one-shot stop notifier for id, if it still has one. The
// per-client handler must observe this within one Streaming iteration and
// respond by sending ClientQuit and exiting.
func (h *Hub) Stop(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	stop, ok := h.stops[id]
	if !ok {
		return
	}
	close(stop)
	delete(h.stops, id)
}

// Publish fans msg out to every current subscriber. An Action published
// with no subscribers connected is not an error — it is simply dropped.
// A File published with no subscribers returns kmf.ErrNoClients, since a
// file drop the caller asked for has an observable destination they care
// about. Quit is terminal: it is fanned out and then the hub refuses any
// further Publish.
//
// A subscriber whose channel is full is considered a lagged, broken
// receiver: Publish does not block waiting for it, and instead drops that
// one subscriber (closing its channel so its handler observes closure and
// terminates) without affecting delivery to any other subscriber — this is
// the fan-out isolation invariant.
func (h *Hub) Publish(msg ServerMessage) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return kmf.ErrHubClosed
	}
	if msg.Kind == MsgFile && len(h.subscribers) == 0 {
		h.mu.Unlock()
		return kmf.ErrNoClients
	}

	var broken []string
	for id, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
			broken = append(broken, id)
		}
	}
	for _, id := range broken {
		close(h.subscribers[id])
		delete(h.subscribers, id)
		delete(h.stops, id)
	}
	if msg.Kind == MsgQuit {
		h.closed = true
	}
	h.mu.Unlock()
	return nil
}

// Len reports the current subscriber count, mainly for tests and metrics.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}
