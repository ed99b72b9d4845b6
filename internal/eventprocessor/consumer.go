// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/metrics"
	"github.com/tomtom215/attentive/internal/models"
	"github.com/tomtom215/attentive/internal/store"
)

// Checkpoint records that a SESSION_END sentinel was observed.
type Checkpoint struct {
	SessionID string
	UserID    string

	// EventTime is the sentinel's producer timestamp (zero if absent).
	EventTime time.Time

	// ObservedAt is when the consumer processed the sentinel.
	ObservedAt time.Time

	// Lag is ObservedAt minus EventTime. Zero when EventTime is unknown.
	Lag time.Duration
}

// ConsumerStats holds runtime statistics for monitoring.
type ConsumerStats struct {
	MessagesReceived    int64
	EventsStored        int64
	Checkpoints         int64
	MalformedDropped    int64
	UnrecognizedDropped int64
	StoreFailures       int64
	RelayConnects       int64
	RelayState          ConnectionState
	StoreState          ConnectionState
	LastMessageTime     time.Time
}

// PersistenceConsumer moves relay messages into the durable store.
// See the package documentation for the connection protocol.
type PersistenceConsumer struct {
	dialer RelayDialer
	store  store.EventStore
	config ConsumerConfig

	relayState *connectionState
	storeState *connectionState

	running   atomic.Bool
	ready     chan struct{}
	readyOnce sync.Once

	mu           sync.Mutex
	checkpoints  []Checkpoint
	onCheckpoint func(Checkpoint)

	messagesReceived    atomic.Int64
	eventsStored        atomic.Int64
	checkpointCount     atomic.Int64
	malformedDropped    atomic.Int64
	unrecognizedDropped atomic.Int64
	storeFailures       atomic.Int64
	relayConnects       atomic.Int64
	lastMessageTime     atomic.Value // time.Time
}

// NewPersistenceConsumer validates its inputs. Nothing connects until Run.
func NewPersistenceConsumer(dialer RelayDialer, st store.EventStore, cfg ConsumerConfig) (*PersistenceConsumer, error) {
	if dialer == nil {
		return nil, fmt.Errorf("%w: relay dialer required", ErrInvalidConfig)
	}
	if st == nil {
		return nil, fmt.Errorf("%w: event store required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.StoreCloseTimeout <= 0 {
		cfg.StoreCloseTimeout = 5 * time.Second
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 100 * time.Millisecond
	}

	c := &PersistenceConsumer{
		dialer:     dialer,
		store:      st,
		config:     cfg,
		relayState: newConnectionState("relay"),
		storeState: newConnectionState("store"),
		ready:      make(chan struct{}),
	}
	c.lastMessageTime.Store(time.Time{})
	return c, nil
}

// SetCheckpointHandler registers fn to run synchronously for every
// checkpoint. fn must not block; the message loop waits for it.
func (c *PersistenceConsumer) SetCheckpointHandler(fn func(Checkpoint)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCheckpoint = fn
}

// Ready is closed once the first relay subscription is active.
func (c *PersistenceConsumer) Ready() <-chan struct{} {
	return c.ready
}

// IsRunning reports whether Run is in progress.
func (c *PersistenceConsumer) IsRunning() bool {
	return c.running.Load()
}

// Run connects both dependencies and consumes until ctx is canceled.
//
// It returns nil on cancellation, an ErrStoreUnavailable-wrapped error when
// the store cannot be reached at startup, and ErrConsumerRunning when called
// twice concurrently. Relay failures never end Run.
func (c *PersistenceConsumer) Run(ctx context.Context) error {
	if c.running.Swap(true) {
		return ErrConsumerRunning
	}
	defer c.running.Store(false)

	conn, err := c.connectRelay(ctx)
	if err != nil {
		return nil
	}

	c.storeState.Store(StateConnecting)
	if err := c.store.Connect(ctx); err != nil {
		c.storeState.Store(StateDisconnected)
		_ = conn.Close()
		c.relayState.Store(StateDisconnected)
		if ctx.Err() != nil {
			return nil
		}
		logging.Error().Err(err).Msg("Durable store unavailable, giving up")
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	c.storeState.Store(StateConnected)
	defer c.closeStore()

	logging.Info().
		Str("channel", c.config.Channel).
		Msg("Persistence consumer started")

	for {
		err := c.consume(ctx, conn)
		_ = conn.Close()
		c.relayState.Store(StateDisconnected)
		if ctx.Err() != nil {
			logging.Info().Msg("Persistence consumer stopped")
			return nil
		}

		logging.Warn().
			Err(err).
			Dur("retry_in", c.config.RetryInterval).
			Msg("Relay connection lost")
		if !sleepContext(ctx, c.config.RetryInterval) {
			return nil
		}
		if conn, err = c.connectRelay(ctx); err != nil {
			return nil
		}
	}
}

// connectRelay dials and pings until both succeed, waiting RetryInterval
// between attempts. It fails only when ctx is done.
func (c *PersistenceConsumer) connectRelay(ctx context.Context) (RelayConn, error) {
	for attempt := 1; ; attempt++ {
		c.relayState.Store(StateConnecting)
		conn, err := c.dialAndPing(ctx)
		metrics.RecordRelayConnectAttempt(err)
		if err == nil {
			c.relayState.Store(StateConnected)
			c.relayConnects.Add(1)
			logging.Info().Int("attempt", attempt).Msg("Connected to relay")
			return conn, nil
		}
		c.relayState.Store(StateDisconnected)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		logging.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", c.config.RetryInterval).
			Msg("Relay unavailable, retrying")
		if !sleepContext(ctx, c.config.RetryInterval) {
			return nil, ctx.Err()
		}
	}
}

func (c *PersistenceConsumer) dialAndPing(ctx context.Context) (RelayConn, error) {
	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.config.PingTimeout)
	defer cancel()
	if err := conn.Ping(pingCtx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// consume runs the message loop over one relay connection.
func (c *PersistenceConsumer) consume(ctx context.Context, conn RelayConn) error {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	messages, err := conn.Subscribe(subCtx, c.config.Channel)
	if err != nil {
		return err
	}
	c.readyOnce.Do(func() { close(c.ready) })
	logging.Debug().Str("channel", c.config.Channel).Msg("Subscribed to relay channel")

	closed := conn.Closed()
	for {
		select {
		case <-ctx.Done():
			c.drainMessages(messages)
			return ctx.Err()
		case <-closed:
			return ErrRelayClosed
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return ErrRelayClosed
			}
			c.handleMessage(ctx, msg)
		}
	}
}

// drainMessages processes messages already delivered before shutdown.
func (c *PersistenceConsumer) drainMessages(messages <-chan *message.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.StoreCloseTimeout)
	defer cancel()
	deadline := time.After(c.config.DrainTimeout)
	drained := 0

	defer func() {
		if drained > 0 {
			logging.Info().Int("count", drained).Msg("Persistence consumer drained messages during shutdown")
		}
	}()

	for {
		select {
		case <-deadline:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.handleMessage(ctx, msg)
			drained++
		default:
			return
		}
	}
}

func (c *PersistenceConsumer) handleMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(time.Now())

	outcome := c.process(ctx, msg.Payload)
	metrics.RecordConsumerMessage(outcome)
}

// process handles one payload and returns its metrics outcome.
func (c *PersistenceConsumer) process(ctx context.Context, payload []byte) string {
	if len(payload) == 0 {
		logging.Debug().Msg("Ignoring empty relay message")
		return metrics.OutcomeControl
	}

	ev, err := DecodeEvent(payload)
	if err != nil {
		if errors.Is(err, ErrUnrecognizedEvent) {
			c.unrecognizedDropped.Add(1)
			logging.Warn().Err(err).Int("size", len(payload)).Msg("Dropping unrecognized event")
			return metrics.OutcomeUnrecognized
		}
		c.malformedDropped.Add(1)
		logging.Warn().Err(err).Int("size", len(payload)).Msg("Dropping malformed message")
		return metrics.OutcomeMalformed
	}

	switch e := ev.(type) {
	case SessionEndEvent:
		c.recordCheckpoint(e)
		return metrics.OutcomeCheckpoint
	case DataEvent:
		if err := c.storeEvent(ctx, e); err != nil {
			c.storeFailures.Add(1)
			logging.Error().
				Err(err).
				Str("session_id", e.SessionID).
				Msg("Failed to store event")
			return metrics.OutcomeStoreFailed
		}
		c.eventsStored.Add(1)
		return metrics.OutcomeStored
	default:
		c.unrecognizedDropped.Add(1)
		return metrics.OutcomeUnrecognized
	}
}

func (c *PersistenceConsumer) storeEvent(ctx context.Context, e DataEvent) error {
	start := time.Now()
	id, err := c.store.InsertEvent(ctx, e.Document)
	metrics.RecordStoreWrite(time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	logging.Trace().
		Str("id", id).
		Str("session_id", e.SessionID).
		Msg("Stored event")
	return nil
}

func (c *PersistenceConsumer) recordCheckpoint(e SessionEndEvent) {
	cp := Checkpoint{
		SessionID:  e.SessionID,
		UserID:     e.UserID,
		ObservedAt: time.Now(),
	}
	if e.Timestamp > 0 {
		cp.EventTime = models.TimeFromEpochSeconds(e.Timestamp)
		cp.Lag = cp.ObservedAt.Sub(cp.EventTime)
		metrics.RecordCheckpointLag(cp.Lag)
	}
	c.checkpointCount.Add(1)

	c.mu.Lock()
	if c.config.MaxCheckpoints > 0 {
		c.checkpoints = append(c.checkpoints, cp)
		if over := len(c.checkpoints) - c.config.MaxCheckpoints; over > 0 {
			c.checkpoints = append(c.checkpoints[:0], c.checkpoints[over:]...)
		}
	}
	handler := c.onCheckpoint
	c.mu.Unlock()

	logging.Info().
		Str("session_id", cp.SessionID).
		Dur("lag", cp.Lag).
		Msg("Session end checkpoint")

	if handler != nil {
		handler(cp)
	}
}

// Checkpoints returns the most recent checkpoints, oldest first.
func (c *PersistenceConsumer) Checkpoints() []Checkpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Checkpoint, len(c.checkpoints))
	copy(out, c.checkpoints)
	return out
}

func (c *PersistenceConsumer) closeStore() {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.StoreCloseTimeout)
	defer cancel()
	if err := c.store.Close(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to close durable store")
	}
	c.storeState.Store(StateDisconnected)
}

// Stats returns current runtime statistics.
func (c *PersistenceConsumer) Stats() ConsumerStats {
	var last time.Time
	if t, ok := c.lastMessageTime.Load().(time.Time); ok {
		last = t
	}
	return ConsumerStats{
		MessagesReceived:    c.messagesReceived.Load(),
		EventsStored:        c.eventsStored.Load(),
		Checkpoints:         c.checkpointCount.Load(),
		MalformedDropped:    c.malformedDropped.Load(),
		UnrecognizedDropped: c.unrecognizedDropped.Load(),
		StoreFailures:       c.storeFailures.Load(),
		RelayConnects:       c.relayConnects.Load(),
		RelayState:          c.relayState.Load(),
		StoreState:          c.storeState.Load(),
		LastMessageTime:     last,
	}
}

// sleepContext waits d and reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
