// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// MessageSource yields relay messages for a channel.
type MessageSource interface {
	// Subscribe returns messages in relay arrival order. The channel closes
	// when ctx is canceled or the source is closed.
	Subscribe(ctx context.Context, channel string) (<-chan *message.Message, error)
	// Close releases the source.
	Close() error
}

// RelayConn is one established relay connection owned by the consumer.
type RelayConn interface {
	MessageSource

	// Ping verifies the relay is reachable with a round trip.
	Ping(ctx context.Context) error

	// State reports the live connection state.
	State() ConnectionState

	// Closed is closed once the connection is permanently lost.
	// A nil channel means the connection cannot be lost.
	Closed() <-chan struct{}
}

// RelayDialer opens relay connections. Each Dial is one connection attempt.
type RelayDialer interface {
	Dial(ctx context.Context) (RelayConn, error)
}

// ChannelRelay is an in-process relay over watermill's gochannel.
//
// Publish blocks until the subscriber acks, which keeps single-publisher
// order intact; with no subscriber it returns immediately and the message
// is dropped, as on the real relay.
type ChannelRelay struct {
	pubsub *gochannel.GoChannel
	once   sync.Once
}

var _ RelayDialer = (*ChannelRelay)(nil)

// NewChannelRelay creates an in-process relay.
func NewChannelRelay(buffer int64, logger watermill.LoggerAdapter) *ChannelRelay {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &ChannelRelay{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            buffer,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: true,
		}, logger),
	}
}

// Publisher returns the watermill publisher side for NewPublisher.
func (r *ChannelRelay) Publisher() message.Publisher {
	return r.pubsub
}

// Dial implements RelayDialer. It never fails.
func (r *ChannelRelay) Dial(_ context.Context) (RelayConn, error) {
	return &channelConn{relay: r}, nil
}

// Close shuts the relay down, closing all subscriptions.
func (r *ChannelRelay) Close() error {
	var err error
	r.once.Do(func() { err = r.pubsub.Close() })
	return err
}

type channelConn struct {
	relay *ChannelRelay
}

func (c *channelConn) Subscribe(ctx context.Context, channel string) (<-chan *message.Message, error) {
	return c.relay.pubsub.Subscribe(ctx, channel)
}

func (c *channelConn) Ping(ctx context.Context) error { return ctx.Err() }

func (c *channelConn) State() ConnectionState { return StateConnected }

func (c *channelConn) Closed() <-chan struct{} { return nil }

// Close is a no-op; subscriptions end with their context.
func (c *channelConn) Close() error { return nil }
