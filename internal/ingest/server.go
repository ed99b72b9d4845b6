// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/attentive/internal/landmark"
	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/metrics"
	"github.com/tomtom215/attentive/internal/models"
)

// Forwarder publishes enriched frames to the relay. *eventprocessor.Publisher
// implements it.
type Forwarder interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Stats holds runtime counters for the endpoint.
type Stats struct {
	ConnectionsActive int   `json:"connections_active"`
	ConnectionsTotal  int64 `json:"connections_total"`
	FramesDecoded     int64 `json:"frames_decoded"`
	DecodeFailures    int64 `json:"decode_failures"`
	DataFrames        int64 `json:"data_frames"`
	SessionEnds       int64 `json:"session_ends"`
	Ignored           int64 `json:"ignored"`
	Forwarded         int64 `json:"forwarded"`
	ForwardFailures   int64 `json:"forward_failures"`
}

// Server accepts websocket connections and processes their frames.
type Server struct {
	config    Config
	forwarder Forwarder
	hub       *Hub
	upgrader  websocket.Upgrader

	connectionsTotal atomic.Int64
	framesDecoded    atomic.Int64
	decodeFailures   atomic.Int64
	dataFrames       atomic.Int64
	sessionEnds      atomic.Int64
	ignored          atomic.Int64
	forwarded        atomic.Int64
	forwardFailures  atomic.Int64

	mu        sync.Mutex
	addr      net.Addr
	ready     chan struct{}
	readyOnce sync.Once
}

// NewServer creates an endpoint. fwd may be nil, in which case computed
// metrics are discarded.
func NewServer(cfg Config, fwd Forwarder) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		config:    cfg,
		forwarder: fwd,
		hub:       NewHub(),
		ready:     make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s, nil
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.config.AllowedOrigins, origin)
}

// Hub returns the connection registry.
func (s *Server) Hub() *Hub { return s.hub }

// Forwarding reports whether frames are forwarded to the relay.
func (s *Server) Forwarding() bool { return s.forwarder != nil }

// Ready is closed once Run is listening.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// Addr returns the bound listen address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ServeHTTP upgrades the request and runs the connection until it closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		logging.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("Websocket upgrade failed")
		return
	}

	c := newConn(s, ws)
	ctx := logging.ContextWithConnectionID(r.Context(), c.connectionID)

	s.hub.Register(c)
	s.connectionsTotal.Add(1)
	metrics.RecordIngestConnectionOpened()
	defer func() {
		s.hub.Unregister(c)
		metrics.RecordIngestConnectionClosed()
	}()

	go c.pingLoop()
	c.readLoop(ctx)
}

// Handler returns the HTTP handler mounting the endpoint at Config.Path.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(s.config.Path, s)
	return mux
}

// Run listens on Config.Addr and serves until ctx is canceled, then closes
// every open connection.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.readyOnce.Do(func() { close(s.ready) })

	logging.Info().
		Str("addr", ln.Addr().String()).
		Bool("forwarding", s.Forwarding()).
		Msg("Ingestion endpoint listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("ingest server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Hijacked websocket connections are not tracked by Shutdown.
	s.hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown ingest server: %w", err)
	}
	logging.Info().Msg("Ingestion endpoint stopped")
	return nil
}

// handleFrame decodes one client frame and dispatches it by event type.
func (s *Server) handleFrame(ctx context.Context, c *Conn, raw []byte) {
	var frame models.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.decodeFailures.Add(1)
		metrics.RecordIngestDecodeFailure()
		logging.Ctx(ctx).Debug().Err(err).Int("size", len(raw)).Msg("Failed to decode frame")
		return
	}
	s.framesDecoded.Add(1)

	switch frame.EventType {
	case models.EventTypeData:
		s.dataFrames.Add(1)
		metrics.RecordIngestFrame(frame.EventType.String())

		start := time.Now()
		m := landmark.Compute(frame.Payload.Landmarks)
		metrics.RecordIngestCompute(time.Since(start))

		if s.forwarder == nil {
			return
		}
		c.sequence++
		payload, err := enrichFrame(raw, m, c.sequence)
		if err != nil {
			s.forwardFailures.Add(1)
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to encode enriched frame")
			return
		}
		s.forward(ctx, payload)

	case models.EventTypeSessionEnd:
		s.sessionEnds.Add(1)
		metrics.RecordIngestFrame(frame.EventType.String())
		logging.Ctx(ctx).Debug().Str("session_id", frame.SessionID).Msg("Client ended session")
		if s.forwarder != nil {
			s.forward(ctx, raw)
		}

	default:
		s.ignored.Add(1)
		metrics.RecordIngestFrame("other")
	}
}

func (s *Server) forward(ctx context.Context, payload []byte) {
	err := s.forwarder.Publish(ctx, s.config.Channel, payload)
	metrics.RecordIngestForward(err)
	if err != nil {
		s.forwardFailures.Add(1)
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to forward frame to relay")
		return
	}
	s.forwarded.Add(1)
}

// enrichFrame adds metrics and the sequence number to the frame's payload,
// leaving every other field, numbers included, exactly as the client sent it.
func enrichFrame(raw []byte, m models.AttentionMetrics, sequence uint64) ([]byte, error) {
	doc, err := models.DecodeDocument(raw)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, models.ErrInvalidJSON
	}
	payload, _ := doc["payload"].(map[string]any)
	if payload == nil {
		payload = make(map[string]any, 6)
	}
	payload["earLeft"] = m.EarLeft
	payload["earRight"] = m.EarRight
	payload["ear"] = m.EAR()
	payload["mar"] = m.MAR
	payload["yaw"] = m.Yaw
	payload["sequence"] = sequence
	doc["payload"] = payload
	return json.Marshal(doc)
}

// Stats returns current counters.
func (s *Server) Stats() Stats {
	return Stats{
		ConnectionsActive: s.hub.Count(),
		ConnectionsTotal:  s.connectionsTotal.Load(),
		FramesDecoded:     s.framesDecoded.Load(),
		DecodeFailures:    s.decodeFailures.Load(),
		DataFrames:        s.dataFrames.Load(),
		SessionEnds:       s.sessionEnds.Load(),
		Ignored:           s.ignored.Load(),
		Forwarded:         s.forwarded.Load(),
		ForwardFailures:   s.forwardFailures.Load(),
	}
}
