// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"sync/atomic"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/metrics"
)

// ConnectionState is the lifecycle of a dependency handle:
// DISCONNECTED -> CONNECTING -> CONNECTED, back to DISCONNECTED on failure.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

// String implements fmt.Stringer.
func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// MarshalText renders the state by name in JSON health output.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// connectionState tracks one dependency and mirrors it to the state gauge.
type connectionState struct {
	dependency string
	v          atomic.Int32
}

func newConnectionState(dependency string) *connectionState {
	s := &connectionState{dependency: dependency}
	metrics.RecordConnectionState(dependency, int(StateDisconnected))
	return s
}

func (s *connectionState) Load() ConnectionState {
	return ConnectionState(s.v.Load())
}

func (s *connectionState) Store(next ConnectionState) {
	prev := ConnectionState(s.v.Swap(int32(next)))
	if prev == next {
		return
	}
	metrics.RecordConnectionState(s.dependency, int(next))
	logging.Debug().
		Str("dependency", s.dependency).
		Stringer("from", prev).
		Stringer("to", next).
		Msg("Connection state changed")
}
