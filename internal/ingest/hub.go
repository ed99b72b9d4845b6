// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package ingest

import (
	"sort"
	"sync"

	"github.com/tomtom215/attentive/internal/logging"
)

// Hub is the registry of open connections. It holds no per-frame state;
// connections never talk to each other.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
}

// NewHub creates an empty registry.
func NewHub() *Hub {
	return &Hub{conns: make(map[*Conn]struct{})}
}

// Register adds c.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()
	logging.Debug().Str("conn_id", c.ConnectionID()).Int("total_connections", n).Msg("Ingest client connected")
}

// Unregister removes c. Unknown connections are ignored.
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	if ok {
		logging.Debug().Str("conn_id", c.ConnectionID()).Int("total_connections", n).Msg("Ingest client disconnected")
	}
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// snapshot returns connections ordered by ID.
func (h *Hub) snapshot() []*Conn {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	sort.Slice(conns, func(i, j int) bool { return conns[i].ID() < conns[j].ID() })
	return conns
}

// CloseAll sends a going-away close frame to every connection and closes it.
func (h *Hub) CloseAll() {
	conns := h.snapshot()
	for _, c := range conns {
		c.closeGoingAway()
	}
	if len(conns) > 0 {
		logging.Info().Int("clients_closed", len(conns)).Msg("Closed ingest connections")
	}
}
