// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// NATSDialer dials NATS core connections for the consumer.
//
// Dial does not retry: a refused connection is reported immediately so the
// consumer's fixed-interval loop owns the retry policy. Once connected, the
// client reconnects on its own up to MaxReconnects times before Closed fires.
type NATSDialer struct {
	config RelayConfig
	logger watermill.LoggerAdapter
}

var _ RelayDialer = (*NATSDialer)(nil)

// NewNATSDialer validates cfg and returns a dialer.
func NewNATSDialer(cfg RelayConfig, logger watermill.LoggerAdapter) (*NATSDialer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &NATSDialer{config: cfg, logger: logger}, nil
}

// Dial implements RelayDialer.
func (d *NATSDialer) Dial(ctx context.Context) (RelayConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	closed := make(chan struct{})
	var closeOnce sync.Once
	logger := d.logger.With(watermill.LogFields{"url": d.config.URL})

	opts := []natsgo.Option{
		natsgo.Name(d.config.Name + "-consumer"),
		natsgo.Timeout(d.config.ConnectTimeout),
		natsgo.MaxReconnects(d.config.MaxReconnects),
		natsgo.ReconnectWait(d.config.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Relay disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Relay reconnected", watermill.LogFields{"server": nc.ConnectedUrl()})
		}),
		natsgo.ClosedHandler(func(_ *natsgo.Conn) {
			closeOnce.Do(func() { close(closed) })
		}),
	}

	nc, err := natsgo.Connect(d.config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %w", ErrRelayUnavailable, d.config.URL, err)
	}

	sub, err := wmNats.NewSubscriberWithNatsConn(nc, wmNats.SubscriberSubscriptionConfig{
		Unmarshaler:      &wmNats.NATSMarshaler{},
		SubscribersCount: 1, // one subscription keeps arrival order
		CloseTimeout:     5 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		SubscribeTimeout: d.config.ConnectTimeout,
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: create subscriber: %w", ErrRelayUnavailable, err)
	}

	return &natsConn{nc: nc, subscriber: sub, closed: closed}, nil
}

type natsConn struct {
	nc         *natsgo.Conn
	subscriber message.Subscriber
	closed     chan struct{}
}

func (c *natsConn) Subscribe(ctx context.Context, channel string) (<-chan *message.Message, error) {
	msgs, err := c.subscriber.Subscribe(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe %s: %w", ErrRelayUnavailable, channel, err)
	}
	// The server must have registered interest before producers publish.
	if err := c.nc.Flush(); err != nil {
		return nil, fmt.Errorf("%w: flush subscription: %w", ErrRelayUnavailable, err)
	}
	return msgs, nil
}

func (c *natsConn) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrRelayUnavailable, err)
	}
	return nil
}

func (c *natsConn) State() ConnectionState {
	switch c.nc.Status() {
	case natsgo.CONNECTED:
		return StateConnected
	case natsgo.CONNECTING, natsgo.RECONNECTING:
		return StateConnecting
	default:
		return StateDisconnected
	}
}

func (c *natsConn) Closed() <-chan struct{} { return c.closed }

func (c *natsConn) Close() error {
	err := c.subscriber.Close()
	c.nc.Close()
	return err
}
