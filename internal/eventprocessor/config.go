// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// DefaultChannel is the relay channel shared by producers and the consumer.
const DefaultChannel = "attention-meaningful-events"

// RelayURL builds a NATS client URL from host and port.
func RelayURL(host string, port int) string {
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// RelayConfig configures relay clients (publishers and the consumer dialer).
type RelayConfig struct {
	// URL is the NATS server URL.
	URL string

	// Channel is the relay subject.
	Channel string

	// Name is reported to the NATS server as the client name.
	Name string

	// ConnectTimeout bounds a single dial.
	ConnectTimeout time.Duration

	// PingTimeout bounds the liveness round trip after a dial.
	PingTimeout time.Duration

	// MaxReconnects is how many times an established client reconnects on
	// its own before the connection is closed. -1 means forever.
	MaxReconnects int

	// ReconnectWait is the delay between client-level reconnect attempts.
	ReconnectWait time.Duration

	// ReconnectBuffer is the publish buffer (bytes) held while reconnecting.
	ReconnectBuffer int
}

// DefaultRelayConfig returns defaults for a local NATS server.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		URL:             RelayURL("127.0.0.1", 4222),
		Channel:         DefaultChannel,
		Name:            "attentive",
		ConnectTimeout:  5 * time.Second,
		PingTimeout:     2 * time.Second,
		MaxReconnects:   10,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}
}

// Validate checks the relay configuration.
func (c RelayConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: relay URL is required", ErrInvalidConfig)
	}
	if c.Channel == "" {
		return fmt.Errorf("%w: relay channel is required", ErrInvalidConfig)
	}
	if c.ConnectTimeout <= 0 || c.PingTimeout <= 0 {
		return fmt.Errorf("%w: relay timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// ServerConfig configures the embedded NATS server.
type ServerConfig struct {
	Host string
	// Port -1 picks a random free port.
	Port       int
	MaxPayload int32
	// Logging routes nats-server logs to stderr.
	Logging bool
}

// DefaultServerConfig returns defaults for the embedded relay.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:       "127.0.0.1",
		Port:       4222,
		MaxPayload: 1024 * 1024,
	}
}

// ConsumerConfig configures the persistence consumer.
type ConsumerConfig struct {
	// Channel is the relay channel to subscribe to.
	Channel string

	// RetryInterval is the fixed wait before restarting the relay step.
	RetryInterval time.Duration

	// PingTimeout bounds the relay liveness check.
	PingTimeout time.Duration

	// StoreCloseTimeout bounds closing the store on shutdown.
	StoreCloseTimeout time.Duration

	// DrainTimeout bounds processing of already-delivered messages on shutdown.
	DrainTimeout time.Duration

	// MaxCheckpoints is how many recent checkpoints are kept for Checkpoints().
	MaxCheckpoints int
}

// DefaultConsumerConfig returns the reference consumer settings.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Channel:           DefaultChannel,
		RetryInterval:     5 * time.Second,
		PingTimeout:       2 * time.Second,
		StoreCloseTimeout: 5 * time.Second,
		DrainTimeout:      100 * time.Millisecond,
		MaxCheckpoints:    128,
	}
}

// Validate checks the consumer configuration.
func (c ConsumerConfig) Validate() error {
	if c.Channel == "" {
		return fmt.Errorf("%w: consumer channel is required", ErrInvalidConfig)
	}
	if c.RetryInterval <= 0 {
		return fmt.Errorf("%w: retry interval must be positive", ErrInvalidConfig)
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("%w: ping timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxCheckpoints < 0 {
		return fmt.Errorf("%w: max checkpoints cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// CircuitBreakerConfig configures a gobreaker instance.
type CircuitBreakerConfig struct {
	Name string
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval clears counts while closed. 0 never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open.
	Timeout time.Duration
	// FailureThreshold is the consecutive failures that open the breaker.
	FailureThreshold uint32
}

// DefaultCircuitBreakerConfig returns defaults for relay publishing.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "relay-publish",
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
