// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/attentive/internal/metrics"
)

// Publisher publishes raw payloads to the relay with circuit breaker
// protection. It is safe for concurrent use by all ingestion connections.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[any]
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher wraps any watermill publisher (NATS or gochannel).
func NewPublisher(pub message.Publisher) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	return &Publisher{publisher: pub}, nil
}

// NewNATSPublisher creates a fire-and-forget NATS core publisher.
// The client keeps retrying the initial connect in the background, so
// producers can start before the relay is reachable.
func NewNATSPublisher(cfg RelayConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.Name(cfg.Name + "-publisher"),
		natsgo.Timeout(cfg.ConnectTimeout),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Publisher reconnected", watermill.LogFields{"server": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	p, err := NewPublisher(pub)
	if err != nil {
		return nil, err
	}
	p.SetCircuitBreaker(NewCircuitBreaker(DefaultCircuitBreakerConfig()))
	return p, nil
}

// SetCircuitBreaker configures the breaker used by Publish.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[any]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.circuitBreaker = cb
}

// Publish sends payload on channel. Delivery is at-most-once.
func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.RLock()
	closed, cb := p.closed, p.circuitBreaker
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.SetContext(ctx)

	var err error
	if cb != nil {
		_, err = cb.Execute(func() (any, error) {
			return nil, p.publisher.Publish(channel, msg)
		})
	} else {
		err = p.publisher.Publish(channel, msg)
	}

	metrics.RecordRelayPublish(err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

// Marshaler is implemented by DataEvent and SessionEndEvent.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// PublishEvent encodes and publishes an event.
func (p *Publisher) PublishEvent(ctx context.Context, channel string, ev Marshaler) error {
	data, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.Publish(ctx, channel, data)
}

// Close shuts down the underlying publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// HealthCheck implements HealthCheckable. An open breaker is degraded:
// publishes fail fast until it half-opens.
func (p *Publisher) HealthCheck(_ context.Context) ComponentHealth {
	p.mu.RLock()
	closed, cb := p.closed, p.circuitBreaker
	p.mu.RUnlock()

	if closed {
		return ComponentHealth{Healthy: false, Error: "publisher is closed"}
	}
	if cb == nil {
		return ComponentHealth{Healthy: true, Message: "publisher is open"}
	}
	state := cb.State()
	details := map[string]any{"circuit_breaker": state.String()}
	if state == gobreaker.StateOpen {
		return ComponentHealth{Healthy: true, Degraded: true, Message: "circuit breaker open", Details: details}
	}
	return ComponentHealth{Healthy: true, Message: "publisher is open", Details: details}
}
