package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/Specto0/specto/internal/config"
	"github.com/Specto0/specto/pkg/log"
)

// Hub tracks which connections are subscribed to which topic and fans
// events out to them. One coarse lock serializes registry bookkeeping;
// every operation under it is O(1) map work. Socket I/O never happens
// under the lock: delivery only pushes into each client's buffered send
// channel, drained by that client's write pump.
type Hub struct {
	mu        sync.RWMutex
	topics    map[uint]map[*Client]struct{}
	broadcast chan *topicEvent
	cfg       config.WebSocketConfig
}

type topicEvent struct {
	topicID uint
	payload []byte
}

// NewHub creates a hub. Call Run in its own goroutine before use.
func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		topics:    make(map[uint]map[*Client]struct{}),
		broadcast: make(chan *topicEvent, 256),
		cfg:       cfg,
	}
}

// Run consumes the broadcast queue until the context is canceled.
// A single consumer keeps per-topic broadcast order intact for every
// still-connected peer.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// Register adds a connection to its topic's set, creating the set on
// first subscriber.
func (h *Hub) Register(topicID uint, c *Client) {
	h.mu.Lock()
	if _, ok := h.topics[topicID]; !ok {
		h.topics[topicID] = make(map[*Client]struct{})
	}
	h.topics[topicID][c] = struct{}{}
	h.mu.Unlock()

	log.L().Debug().
		Str(log.FieldClientID, c.ID).
		Uint(log.FieldTopicID, topicID).
		Msg("client registered")
}

// Unregister removes a connection from its topic's set and drops the
// entry once empty, so abandoned topics do not accumulate. Calling it
// for a connection that is not registered is a no-op, which makes racing
// cleanup paths safe.
func (h *Hub) Unregister(topicID uint, c *Client) {
	h.mu.Lock()
	clients, ok := h.topics[topicID]
	if ok {
		if _, present := clients[c]; present {
			delete(clients, c)
			close(c.send)
			if len(clients) == 0 {
				delete(h.topics, topicID)
			}
		} else {
			ok = false
		}
	}
	h.mu.Unlock()

	if ok {
		log.L().Debug().
			Str(log.FieldClientID, c.ID).
			Uint(log.FieldTopicID, topicID).
			Msg("client unregistered")
	}
}

// Snapshot returns a point-in-time copy of a topic's live connections,
// for introspection. Delivery does not use it: pushing to a send channel
// must be exclusive with Unregister closing that channel, which only
// holding the lock across the push guarantees.
func (h *Hub) Snapshot(topicID uint) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := h.topics[topicID]
	out := make([]*Client, 0, len(clients))
	for c := range clients {
		out = append(out, c)
	}
	return out
}

// Count returns the number of live connections for a topic.
func (h *Hub) Count(topicID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topicID])
}

// Broadcast queues an event for every connection of a topic. Delivery is
// best-effort per connection; a failed peer is unregistered without
// affecting the rest, and the error never reaches the caller.
func (h *Hub) Broadcast(topicID uint, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	h.broadcast <- &topicEvent{topicID: topicID, payload: payload}
	return nil
}

// SendTo pushes an event to a single registered connection. Used for the
// one-off history frame; everything topic-wide goes through Broadcast.
func (h *Hub) SendTo(topicID uint, c *Client, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.topics[topicID][c]; !ok {
		return nil
	}
	select {
	case c.send <- payload:
	default:
	}
	return nil
}

// deliver iterates the live set under the read lock rather than over a
// Snapshot copy: Unregister closes send channels under the write lock,
// so a push inside the read lock can never hit a closed channel.
func (h *Hub) deliver(ev *topicEvent) {
	h.mu.RLock()
	clients := h.topics[ev.topicID]
	for c := range clients {
		select {
		case c.send <- ev.payload:
		default:
			// Slow or dead peer: drop it, keep delivering to the rest.
			// Unregister needs the write lock, so detach it.
			go h.Unregister(ev.topicID, c)
			log.L().Warn().
				Str(log.FieldClientID, c.ID).
				Uint(log.FieldTopicID, ev.topicID).
				Msg("send buffer full, dropping client")
		}
	}
	h.mu.RUnlock()
}
