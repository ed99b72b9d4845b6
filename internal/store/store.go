// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Package store is the durable document store for session events and report
// metadata.
//
// Events are schema-less: the persistence consumer hands over the decoded
// relay message and it is written unchanged as one document in
// session_events. SESSION_END sentinels are never written.
//
// MongoStore is the production implementation. MemoryStore implements the
// same interfaces in memory for tests and local runs.
package store

import (
	"context"
	"errors"

	"github.com/tomtom215/attentive/internal/models"
)

const (
	// EventsCollection holds one document per data event.
	EventsCollection = "session_events"
	// ReportsCollection holds report metadata.
	ReportsCollection = "reports"
)

// Thresholds used by session analysis.
const (
	// DrowsyEARThreshold: mean EAR below this counts as eyes closing.
	DrowsyEARThreshold = 0.2
	// DistractedYawThreshold: |yaw| above this counts as looking away.
	DistractedYawThreshold = 0.3
)

var (
	// ErrNotConnected is returned when an operation runs before Connect.
	ErrNotConnected = errors.New("store not connected")
	// ErrNotFound is returned when a report or session does not exist.
	ErrNotFound = errors.New("not found")
	// ErrMissingCredentials is returned when connection credentials are empty.
	ErrMissingCredentials = errors.New("store credentials missing")
)

// EventStore is the write side used by the persistence consumer.
type EventStore interface {
	// Connect opens the connection and verifies it with a ping.
	Connect(ctx context.Context) error
	// InsertEvent writes doc as one document and returns its ID.
	InsertEvent(ctx context.Context, doc map[string]any) (string, error)
	// Close releases the connection.
	Close(ctx context.Context) error
}

// SessionQuerier is the read side used by report generation.
type SessionQuerier interface {
	// SessionsByUser lists sessions with data events in [from, to) epoch
	// seconds, ordered by first event. page is zero-based.
	SessionsByUser(ctx context.Context, userID string, from, to float64, page, pageSize int) (models.SessionPage, error)
	// AnalyzeSession aggregates one session's data events.
	AnalyzeSession(ctx context.Context, sessionID string) (models.SessionAnalysis, error)
	// SessionEvents returns a session's documents ordered by timestamp, without _id.
	SessionEvents(ctx context.Context, sessionID string) ([]map[string]any, error)
}

// ReportMetadataStore tracks report requests.
type ReportMetadataStore interface {
	CreateReport(ctx context.Context, req models.ReportRequest) (models.ReportMetadata, error)
	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, storagePath string) error
	GetReport(ctx context.Context, id string) (models.ReportMetadata, error)
}

// Pinger is implemented by stores that can report liveness after Connect.
type Pinger interface {
	Ping(ctx context.Context) error
}
