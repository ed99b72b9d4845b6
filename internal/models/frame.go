// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Package models holds the wire and storage types shared by the ingestion
// endpoint, the relay consumer and the report generator.
package models

import (
	"math"
	"time"
)

// EventType discriminates relay and ingestion messages.
type EventType string

const (
	// EventTypeData carries landmarks (ingestion) or metrics (relay).
	EventTypeData EventType = "data"
	// EventTypeSessionEnd marks the logical end of a session's stream.
	EventTypeSessionEnd EventType = "SESSION_END"
)

// String implements fmt.Stringer.
func (e EventType) String() string { return string(e) }

// Valid reports whether e is a known event type.
func (e EventType) Valid() bool {
	return e == EventTypeData || e == EventTypeSessionEnd
}

// LandmarkPoint is one tracked facial point in normalized image coordinates.
type LandmarkPoint struct {
	Index uint32  `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// FramePayload is the body of an ingestion data frame.
type FramePayload struct {
	Landmarks []LandmarkPoint `json:"landmarks,omitempty"`
}

// Frame is one client sampling tick as received by the ingestion endpoint.
// Landmarks are only present for EventTypeData.
type Frame struct {
	SessionID string       `json:"sessionId,omitempty"`
	UserID    string       `json:"userId,omitempty"`
	EventType EventType    `json:"eventType"`
	Timestamp float64      `json:"timestamp,omitempty"` // seconds since epoch
	Payload   FramePayload `json:"payload"`
}

// AttentionMetrics are the scalar metrics derived from one frame.
// Each value is in [0, ~1] for well-formed input; yaw is signed.
type AttentionMetrics struct {
	EarLeft  float64 `json:"earLeft"`
	EarRight float64 `json:"earRight"`
	MAR      float64 `json:"mar"`
	Yaw      float64 `json:"yaw"`
}

// EAR returns the mean of both eye aspect ratios.
func (m AttentionMetrics) EAR() float64 {
	return (m.EarLeft + m.EarRight) / 2
}

// EpochSeconds converts t to the float seconds used on the wire.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// TimeFromEpochSeconds is the inverse of EpochSeconds.
// Non-finite input yields the zero time.
func TimeFromEpochSeconds(s float64) time.Time {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return time.Time{}
	}
	sec, frac := math.Modf(s)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}
