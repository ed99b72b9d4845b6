// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"errors"
)

var (
	// ErrInvalidConfig is returned when configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNilPublisher is returned when a nil watermill publisher is wrapped.
	ErrNilPublisher = errors.New("publisher cannot be nil")

	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher is closed")

	// ErrRelayUnavailable wraps relay dial, ping and subscribe failures.
	ErrRelayUnavailable = errors.New("relay unavailable")

	// ErrRelayClosed is returned when an established relay subscription ends.
	ErrRelayClosed = errors.New("relay connection closed")

	// ErrStoreUnavailable wraps durable store connect failures. It is fatal.
	ErrStoreUnavailable = errors.New("durable store unavailable")

	// ErrMalformedPayload is returned for payloads that are not a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUnrecognizedEvent is returned for objects with a missing or unknown eventType.
	ErrUnrecognizedEvent = errors.New("unrecognized event")

	// ErrStoreWrite wraps a failed insert of a single event.
	ErrStoreWrite = errors.New("store write failed")

	// ErrConsumerRunning is returned by Run when the consumer is already running.
	ErrConsumerRunning = errors.New("consumer already running")
)

// ErrorCategory classifies errors by how the pipeline reacts to them.
type ErrorCategory int

const (
	// CategoryUnknown is not produced by this package.
	CategoryUnknown ErrorCategory = iota
	// CategoryTransient is retried indefinitely with a fixed delay.
	CategoryTransient
	// CategoryFatal terminates the process.
	CategoryFatal
	// CategoryDroppable is logged and skipped; the loop continues.
	CategoryDroppable
	// CategoryShutdown is context cancellation.
	CategoryShutdown
)

// String implements fmt.Stringer.
func (c ErrorCategory) String() string {
	switch c {
	case CategoryTransient:
		return "transient"
	case CategoryFatal:
		return "fatal"
	case CategoryDroppable:
		return "droppable"
	case CategoryShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Classify maps an error returned by this package to its ErrorCategory.
func Classify(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CategoryShutdown
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrInvalidConfig):
		return CategoryFatal
	case errors.Is(err, ErrRelayUnavailable), errors.Is(err, ErrRelayClosed):
		return CategoryTransient
	case errors.Is(err, ErrMalformedPayload), errors.Is(err, ErrUnrecognizedEvent), errors.Is(err, ErrStoreWrite):
		return CategoryDroppable
	default:
		return CategoryUnknown
	}
}
