// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package eventprocessor implements the event relay and the persistence consumer.

# Relay

The relay is a single named publish/subscribe channel (default
"attention-meaningful-events") that decouples producers (the ingestion
endpoint, the stress publisher) from the persistence consumer. Delivery is
at-most-once: NATS core subjects are used with JetStream disabled, so a
message published while no consumer is subscribed is gone.

	pub, _ := eventprocessor.NewNATSPublisher(relayCfg, logging.NewWatermillLogger())
	_ = pub.Publish(ctx, relayCfg.Channel, payload)

Two transports implement the consumer side through RelayDialer:

  - NATSDialer: one *nats.Conn per connection attempt with a watermill-nats
    subscriber on top. Liveness is verified with a server round trip.
  - ChannelRelay: watermill's in-process gochannel, used by tests and by the
    single-process "serve" mode.

EmbeddedServer starts an in-process nats-server for the same purposes.

# Persistence consumer

PersistenceConsumer owns both dependency handles and runs:

 1. Relay connect + ping. Failure waits a fixed RetryInterval (5s) and
    starts over. This never gives up; only context cancellation stops it.
 2. Store connect + ping. Failure is fatal (ErrStoreUnavailable). There is
    no local buffering, so the process exits and relies on its supervisor.
 3. One sequential message loop in relay arrival order. Each message is
    decoded into a DataEvent or SessionEndEvent. Data events are inserted
    unchanged; SESSION_END records a Checkpoint and is never stored.
    Malformed, unrecognized and failed-write messages are logged, counted
    and dropped. Every message is acked; nothing is redelivered.

Producers must set "eventType":"data" on every attention event. An object
without eventType is dropped as unrecognized and never stored.

If the relay connection is lost after startup the consumer re-enters step 1
with the store handle kept open.

A Checkpoint means every earlier publish on the channel has been seen by the
consumer. It does not mean every earlier write succeeded.
*/
package eventprocessor
