// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/attentive/internal/models"
)

// Event is a decoded relay message: DataEvent or SessionEndEvent.
type Event interface {
	Type() models.EventType
	Session() string
	isEvent()
}

// DataEvent is a metrics event to be stored as-is.
type DataEvent struct {
	SessionID string
	UserID    string
	Timestamp float64

	// Payload is the "payload" object (ear, mar, yaw, sequence, ...).
	Payload map[string]any

	// Document is the full decoded message. It is what gets stored.
	Document map[string]any
}

// SessionEndEvent is the end-of-session sentinel.
type SessionEndEvent struct {
	SessionID string
	UserID    string
	Timestamp float64
}

func (DataEvent) Type() models.EventType       { return models.EventTypeData }
func (SessionEndEvent) Type() models.EventType { return models.EventTypeSessionEnd }
func (e DataEvent) Session() string            { return e.SessionID }
func (e SessionEndEvent) Session() string      { return e.SessionID }
func (DataEvent) isEvent()                     {}
func (SessionEndEvent) isEvent()               {}

// DecodeEvent parses a relay payload.
//
// Payloads that are not a JSON object yield ErrMalformedPayload. Objects with
// a missing or unknown eventType yield ErrUnrecognizedEvent. Both are
// per-message droppable.
//
// Numbers in the document keep their exact value: integers become int64 and
// everything else float64, so stored documents match what was published.
func DecodeEvent(payload []byte) (Event, error) {
	doc, err := models.DecodeDocument(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedPayload)
	}
	models.NormalizeNumbers(doc)

	eventType, _ := doc["eventType"].(string)
	sessionID, _ := doc["sessionId"].(string)
	userID, _ := doc["userId"].(string)
	ts := numberField(doc, "timestamp")

	switch models.EventType(eventType) {
	case models.EventTypeData:
		payloadObj, _ := doc["payload"].(map[string]any)
		return DataEvent{
			SessionID: sessionID,
			UserID:    userID,
			Timestamp: ts,
			Payload:   payloadObj,
			Document:  doc,
		}, nil
	case models.EventTypeSessionEnd:
		return SessionEndEvent{SessionID: sessionID, UserID: userID, Timestamp: ts}, nil
	case "":
		return nil, fmt.Errorf("%w: missing eventType", ErrUnrecognizedEvent)
	default:
		return nil, fmt.Errorf("%w: eventType %q", ErrUnrecognizedEvent, eventType)
	}
}

func numberField(doc map[string]any, key string) float64 {
	switch v := doc[key].(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// NewDataEvent builds a data event for publishing.
func NewDataEvent(sessionID, userID string, ts time.Time, payload map[string]any) DataEvent {
	return DataEvent{
		SessionID: sessionID,
		UserID:    userID,
		Timestamp: models.EpochSeconds(ts),
		Payload:   payload,
	}
}

// NewSessionEndEvent builds a sentinel for publishing.
func NewSessionEndEvent(sessionID, userID string, ts time.Time) SessionEndEvent {
	return SessionEndEvent{SessionID: sessionID, UserID: userID, Timestamp: models.EpochSeconds(ts)}
}

// Marshal encodes the event for the relay. A decoded event re-encodes its
// original document unchanged.
func (e DataEvent) Marshal() ([]byte, error) {
	if e.Document != nil {
		return json.Marshal(e.Document)
	}
	doc := map[string]any{
		"sessionId": e.SessionID,
		"eventType": models.EventTypeData,
		"timestamp": e.Timestamp,
		"payload":   e.Payload,
	}
	if e.UserID != "" {
		doc["userId"] = e.UserID
	}
	return json.Marshal(doc)
}

// Marshal encodes the sentinel for the relay.
func (e SessionEndEvent) Marshal() ([]byte, error) {
	doc := map[string]any{
		"sessionId": e.SessionID,
		"eventType": models.EventTypeSessionEnd,
		"timestamp": e.Timestamp,
	}
	if e.UserID != "" {
		doc["userId"] = e.UserID
	}
	return json.Marshal(doc)
}
