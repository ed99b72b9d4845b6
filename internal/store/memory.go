// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package store

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/attentive/internal/models"
)

// NewReportID returns a new report identifier.
func NewReportID() string {
	return "report-" + uuid.NewString()
}

// MemoryStore is an in-memory EventStore, SessionQuerier and
// ReportMetadataStore. Insertion order is preserved.
type MemoryStore struct {
	mu        sync.RWMutex
	connected bool
	nextID    int64
	events    []memoryDoc
	reports   map[string]models.ReportMetadata

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error

	// InsertHook, when set, runs before each insert; a non-nil error fails it.
	InsertHook func(doc map[string]any) error
}

type memoryDoc struct {
	id  string
	doc map[string]any
}

var (
	_ EventStore          = (*MemoryStore)(nil)
	_ SessionQuerier      = (*MemoryStore)(nil)
	_ ReportMetadataStore = (*MemoryStore)(nil)
	_ Pinger              = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty, unconnected store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]models.ReportMetadata)}
}

// Connect implements EventStore.
func (m *MemoryStore) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ConnectErr != nil {
		return m.ConnectErr
	}
	m.connected = true
	return nil
}

// Ping implements Pinger.
func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return ErrNotConnected
	}
	return nil
}

// InsertEvent implements EventStore. The document is shallow-copied.
func (m *MemoryStore) InsertEvent(ctx context.Context, doc map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", ErrNotConnected
	}
	if m.InsertHook != nil {
		if err := m.InsertHook(doc); err != nil {
			return "", err
		}
	}
	m.nextID++
	id := fmt.Sprintf("%024x", m.nextID)
	m.events = append(m.events, memoryDoc{id: id, doc: maps.Clone(doc)})
	return id, nil
}

// Close implements EventStore.
func (m *MemoryStore) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Connected reports whether Connect succeeded and Close has not been called.
func (m *MemoryStore) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Documents returns copies of all stored documents in insertion order.
func (m *MemoryStore) Documents() []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]map[string]any, len(m.events))
	for i, e := range m.events {
		out[i] = maps.Clone(e.doc)
	}
	return out
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

func (m *MemoryStore) dataEvents(match func(doc map[string]any) bool) []map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []map[string]any
	for _, e := range m.events {
		if t, _ := e.doc["eventType"].(string); t != string(models.EventTypeData) {
			continue
		}
		if match(e.doc) {
			out = append(out, e.doc)
		}
	}
	return out
}

// SessionsByUser implements SessionQuerier.
func (m *MemoryStore) SessionsByUser(ctx context.Context, userID string, from, to float64, page, pageSize int) (models.SessionPage, error) {
	if err := ctx.Err(); err != nil {
		return models.SessionPage{}, err
	}
	docs := m.dataEvents(func(doc map[string]any) bool {
		uid, _ := doc["userId"].(string)
		ts := docNumber(doc, "timestamp")
		return uid == userID && ts >= from && ts < to
	})

	bySession := make(map[string]*models.SessionRef)
	var order []string
	for _, doc := range docs {
		sid, _ := doc["sessionId"].(string)
		ts := docNumber(doc, "timestamp")
		ref, ok := bySession[sid]
		if !ok {
			ref = &models.SessionRef{SessionID: sid, UserID: userID, FirstEvent: ts, LastEvent: ts}
			bySession[sid] = ref
			order = append(order, sid)
		}
		ref.EventCount++
		ref.FirstEvent = math.Min(ref.FirstEvent, ts)
		ref.LastEvent = math.Max(ref.LastEvent, ts)
	}

	refs := make([]models.SessionRef, 0, len(order))
	for _, sid := range order {
		refs = append(refs, *bySession[sid])
	}
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].FirstEvent < refs[j].FirstEvent })

	result := models.SessionPage{Total: int64(len(refs)), Sessions: []models.SessionRef{}}
	start := page * pageSize
	if pageSize <= 0 || start >= len(refs) {
		return result, nil
	}
	end := min(start+pageSize, len(refs))
	result.Sessions = refs[start:end]
	return result, nil
}

// AnalyzeSession implements SessionQuerier.
func (m *MemoryStore) AnalyzeSession(ctx context.Context, sessionID string) (models.SessionAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return models.SessionAnalysis{}, err
	}
	docs := m.dataEvents(func(doc map[string]any) bool {
		sid, _ := doc["sessionId"].(string)
		return sid == sessionID
	})
	if len(docs) == 0 {
		return models.SessionAnalysis{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	a := models.SessionAnalysis{SessionID: sessionID, StartTime: math.Inf(1), EndTime: math.Inf(-1)}
	var earSum, marSum, yawSum float64
	var earN, marN, yawN, drowsy, distracted int64
	for _, doc := range docs {
		if a.UserID == "" {
			a.UserID, _ = doc["userId"].(string)
		}
		ts := docNumber(doc, "timestamp")
		a.StartTime = math.Min(a.StartTime, ts)
		a.EndTime = math.Max(a.EndTime, ts)
		a.EventCount++

		payload, _ := doc["payload"].(map[string]any)
		if ear, ok := payloadNumber(payload, "ear"); ok {
			earSum += ear
			earN++
			if ear < DrowsyEARThreshold {
				drowsy++
			}
		}
		if mar, ok := payloadNumber(payload, "mar"); ok {
			marSum += mar
			marN++
		}
		if yaw, ok := payloadNumber(payload, "yaw"); ok {
			yawSum += yaw
			yawN++
			if math.Abs(yaw) > DistractedYawThreshold {
				distracted++
			}
		}
	}

	a.DurationSeconds = a.EndTime - a.StartTime
	a.AvgEAR = safeDiv(earSum, earN)
	a.AvgMAR = safeDiv(marSum, marN)
	a.AvgYaw = safeDiv(yawSum, yawN)
	a.DrowsyRatio = safeDiv(float64(drowsy), a.EventCount)
	a.DistractedRatio = safeDiv(float64(distracted), a.EventCount)
	return a, nil
}

// SessionEvents implements SessionQuerier.
func (m *MemoryStore) SessionEvents(ctx context.Context, sessionID string) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	var out []map[string]any
	for _, e := range m.events {
		if sid, _ := e.doc["sessionId"].(string); sid == sessionID {
			out = append(out, maps.Clone(e.doc))
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		return docNumber(out[i], "timestamp") < docNumber(out[j], "timestamp")
	})
	return out, nil
}

// CreateReport implements ReportMetadataStore.
func (m *MemoryStore) CreateReport(ctx context.Context, req models.ReportRequest) (models.ReportMetadata, error) {
	if err := ctx.Err(); err != nil {
		return models.ReportMetadata{}, err
	}
	now := time.Now().UTC()
	meta := models.ReportMetadata{
		ID:          NewReportID(),
		ReportTitle: req.ReportTitle,
		UserID:      req.UserID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.ReportStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.mu.Lock()
	m.reports[meta.ID] = meta
	m.mu.Unlock()
	return meta, nil
}

// UpdateReportStatus implements ReportMetadataStore.
func (m *MemoryStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, storagePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	meta, ok := m.reports[id]
	if !ok {
		return fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	meta.Status = status
	if storagePath != "" {
		meta.StoragePath = storagePath
	}
	meta.UpdatedAt = time.Now().UTC()
	m.reports[id] = meta
	return nil
}

// GetReport implements ReportMetadataStore.
func (m *MemoryStore) GetReport(ctx context.Context, id string) (models.ReportMetadata, error) {
	if err := ctx.Err(); err != nil {
		return models.ReportMetadata{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.reports[id]
	if !ok {
		return models.ReportMetadata{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	return meta, nil
}

func docNumber(doc map[string]any, key string) float64 {
	v, _ := payloadNumber(doc, key)
	return v
}

// payloadNumber reads a numeric field, accepting the integer types produced
// by BSON decoding as well as JSON float64.
func payloadNumber(doc map[string]any, key string) (float64, bool) {
	if doc == nil {
		return 0, false
	}
	switch v := doc[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func safeDiv(sum float64, n int64) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
