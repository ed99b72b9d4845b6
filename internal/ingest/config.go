// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package ingest

import (
	"errors"
	"time"
)

// Config configures the ingestion endpoint.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Path is the HTTP path that upgrades to a websocket.
	Path string

	// Channel is the relay channel frames are forwarded to.
	Channel string

	// ReadLimit is the maximum frame size in bytes.
	ReadLimit int64

	// PongWait is how long a connection may stay silent before it is closed.
	PongWait time.Duration

	// WriteWait bounds writing a ping.
	WriteWait time.Duration

	// AllowedOrigins restricts browser origins. Empty allows any origin.
	AllowedOrigins []string
}

// DefaultConfig returns the reference endpoint settings.
func DefaultConfig() Config {
	return Config{
		Addr:      ":9002",
		Path:      "/",
		Channel:   "attention-meaningful-events",
		ReadLimit: 512 * 1024,
		PongWait:  60 * time.Second,
		WriteWait: 10 * time.Second,
	}
}

// pingPeriod must be shorter than PongWait.
func (c Config) pingPeriod() time.Duration {
	return (c.PongWait * 9) / 10
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("ingest listen address is required")
	}
	if c.Path == "" || c.Path[0] != '/' {
		return errors.New("ingest path must start with /")
	}
	if c.ReadLimit <= 0 {
		return errors.New("ingest read limit must be positive")
	}
	if c.PongWait <= 0 || c.WriteWait <= 0 {
		return errors.New("ingest timeouts must be positive")
	}
	return nil
}
