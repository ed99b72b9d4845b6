// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/attentive/internal/logging"
)

// connIDCounter gives connections monotonically increasing IDs so the hub
// can close them in a stable order.
var connIDCounter atomic.Uint64

// Conn is one client websocket connection.
type Conn struct {
	id           uint64
	connectionID string
	ws           *websocket.Conn
	server       *Server

	// sequence numbers forwarded data frames. Only the read loop touches it.
	sequence uint64

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(s *Server, ws *websocket.Conn) *Conn {
	return &Conn{
		id:           connIDCounter.Add(1),
		connectionID: logging.GenerateConnectionID(),
		ws:           ws,
		server:       s,
		done:         make(chan struct{}),
	}
}

// ID returns the connection's ordering key.
func (c *Conn) ID() uint64 { return c.id }

// ConnectionID returns the short random ID used in logs.
func (c *Conn) ConnectionID() string { return c.connectionID }

// readLoop receives frames until the client goes away or a read fails.
func (c *Conn) readLoop(ctx context.Context) {
	defer c.close()

	cfg := c.server.config
	c.ws.SetReadLimit(cfg.ReadLimit)
	if err := c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				logging.Ctx(ctx).Debug().Err(err).Msg("Ingest connection closed unexpectedly")
			}
			return
		}
		// Any frame proves the client is alive.
		_ = c.ws.SetReadDeadline(time.Now().Add(cfg.PongWait))

		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		c.server.handleFrame(ctx, c, data)
	}
}

// pingLoop keeps the connection alive until the read loop ends.
func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.server.config.pingPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.server.config.WriteWait))
			c.writeMu.Unlock()
			if err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Conn) closeGoingAway() {
	c.writeMu.Lock()
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
		time.Now().Add(c.server.config.WriteWait),
	)
	c.writeMu.Unlock()
	c.close()
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
