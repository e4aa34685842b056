package ws

import (
	"sync"
)

type Conn interface {
	Send(msg Message) error
	Close() error
}

// Hub is the set of attached UI connections. The daemon is local, so
// there is no room partitioning: every event goes to every connection.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns {
		_ = c.Send(msg) // best-effort
	}
}
