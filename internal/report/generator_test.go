// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/attentive/internal/models"
	"github.com/tomtom215/attentive/internal/store"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, time.March, d, hour, 0, 0, 0, time.UTC)
}

// seedSession stores n data events one second apart starting at at.
func seedSession(t *testing.T, st *store.MemoryStore, user, session string, at time.Time, n int, ear, yaw float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		doc := map[string]any{
			"sessionId": session,
			"userId":    user,
			"eventType": "data",
			"timestamp": models.EpochSeconds(at.Add(time.Duration(i) * time.Second)),
			"payload":   map[string]any{"ear": ear, "mar": 0.05, "yaw": yaw, "sequence": float64(i)},
		}
		if _, err := st.InsertEvent(context.Background(), doc); err != nil {
			t.Fatalf("InsertEvent() error = %v", err)
		}
	}
}

func newTestStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	return st
}

func newTestArtifacts(t *testing.T) *ArtifactStore {
	t.Helper()
	a, err := OpenInMemoryArtifactStore()
	if err != nil {
		t.Fatalf("OpenInMemoryArtifactStore() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func createReport(t *testing.T, st *store.MemoryStore, user, start, end string) models.ReportMetadata {
	t.Helper()
	meta, err := st.CreateReport(context.Background(), models.ReportRequest{
		ReportTitle: "weekly", UserID: user, StartDate: start, EndDate: end,
	})
	if err != nil {
		t.Fatal(err)
	}
	return meta
}

type stubFeedback struct {
	text  string
	err   error
	mu    sync.Mutex
	facts []Facts
}

func (s *stubFeedback) Feedback(_ context.Context, f Facts) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facts = append(s.facts, f)
	return s.text, s.err
}

// flakyArtifacts fails Save while saveErr is set.
type flakyArtifacts struct {
	*ArtifactStore
	saveErr error
}

func (f *flakyArtifacts) Save(ctx context.Context, path string, r *models.Report) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.ArtifactStore.Save(ctx, path, r)
}

// refusingReports fails the COMPLETED transition.
type refusingReports struct {
	*store.MemoryStore
}

func (r refusingReports) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus, path string) error {
	if status == models.ReportStatusCompleted {
		return errors.New("metadata store down")
	}
	return r.MemoryStore.UpdateReportStatus(ctx, id, status, path)
}

func TestGenerator_Completed(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	artifacts := newTestArtifacts(t)
	seedSession(t, st, "u1", "s1", day(2, 9), 10, 0.30, 0.0)
	seedSession(t, st, "u1", "s2", day(3, 9), 30, 0.10, 0.5)
	seedSession(t, st, "u1", "out-of-range", day(9, 9), 5, 0.30, 0.0)
	seedSession(t, st, "u2", "other-user", day(2, 10), 5, 0.30, 0.0)

	fb := &stubFeedback{text: "Keep going."}
	gen := NewGenerator(st, st, artifacts, fb)
	meta := createReport(t, st, "u1", "2026-03-01", "2026-03-03")

	if err := gen.Generate(context.Background(), meta.ID, "u1", "2026-03-01", "2026-03-03"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, _ := st.GetReport(context.Background(), meta.ID)
	if got.Status != models.ReportStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
	wantPath := "u1/" + meta.ID + ".json"
	if got.StoragePath != wantPath {
		t.Errorf("StoragePath = %q, want %q", got.StoragePath, wantPath)
	}

	raw, err := artifacts.Load(context.Background(), wantPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	var r models.Report
	if err := json.Unmarshal(raw, &r); err != nil {
		t.Fatal(err)
	}
	if r.ReportID != meta.ID || r.UserID != "u1" {
		t.Errorf("report identity = %s/%s", r.ReportID, r.UserID)
	}
	if r.DateRange != (models.DateRange{Start: "2026-03-01", End: "2026-03-03"}) {
		t.Errorf("DateRange = %+v", r.DateRange)
	}
	if r.Summary.TotalSessions != 2 || len(r.Sessions) != 2 {
		t.Fatalf("sessions = %d/%d, want 2 (end date inclusive, other users excluded)", r.Summary.TotalSessions, len(r.Sessions))
	}
	if r.Sessions[0].SessionID != "s1" || r.Sessions[1].SessionID != "s2" {
		t.Errorf("session order = %s, %s", r.Sessions[0].SessionID, r.Sessions[1].SessionID)
	}
	if r.Summary.TotalEvents != 40 {
		t.Errorf("TotalEvents = %d, want 40", r.Summary.TotalEvents)
	}
	if r.CoachingFeedback != "Keep going." {
		t.Errorf("CoachingFeedback = %q", r.CoachingFeedback)
	}
	if r.LLMSummary == "" || r.LLMSummary != fb.facts[0].Sentence {
		t.Errorf("LLMSummary = %q, feedback saw %q", r.LLMSummary, fb.facts[0].Sentence)
	}
	if f := fb.facts[0]; f.DrowsyRatio != 0.75 || f.DistractedRatio != 0.75 {
		t.Errorf("weighted ratios = %v/%v, want 0.75/0.75", f.DrowsyRatio, f.DistractedRatio)
	}
}

func TestGenerator_NoSessionsFails(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	artifacts := newTestArtifacts(t)
	gen := NewGenerator(st, st, artifacts, nil)
	meta := createReport(t, st, "ghost", "2026-03-01", "2026-03-07")

	err := gen.Generate(context.Background(), meta.ID, "ghost", "2026-03-01", "2026-03-07")
	if !errors.Is(err, ErrNoSessions) {
		t.Fatalf("Generate() error = %v, want ErrNoSessions", err)
	}
	got, _ := st.GetReport(context.Background(), meta.ID)
	if got.Status != models.ReportStatusFailed || got.StoragePath != "" {
		t.Errorf("report = %+v, want FAILED without path", got)
	}
	if paths, _ := artifacts.List(context.Background(), "ghost"); len(paths) != 0 {
		t.Errorf("artifacts left = %v", paths)
	}
}

func TestGenerator_InvalidDatesFail(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	gen := NewGenerator(st, st, newTestArtifacts(t), nil)
	meta := createReport(t, st, "u1", "2026-03-07", "2026-03-01")

	err := gen.Generate(context.Background(), meta.ID, "u1", "2026-03-07", "2026-03-01")
	if !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("Generate() error = %v, want ErrInvalidDateRange", err)
	}
	if got, _ := st.GetReport(context.Background(), meta.ID); got.Status != models.ReportStatusFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
}

func TestGenerator_SaveFailure(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	seedSession(t, st, "u1", "s1", day(2, 9), 3, 0.3, 0)
	artifacts := &flakyArtifacts{ArtifactStore: newTestArtifacts(t), saveErr: errors.New("disk full")}
	gen := NewGenerator(st, st, artifacts, nil)
	meta := createReport(t, st, "u1", "2026-03-01", "2026-03-02")

	if err := gen.Generate(context.Background(), meta.ID, "u1", "2026-03-01", "2026-03-02"); err == nil {
		t.Fatal("Generate() succeeded with failing artifact store")
	}
	if got, _ := st.GetReport(context.Background(), meta.ID); got.Status != models.ReportStatusFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
}

func TestGenerator_CompletionFailureRemovesArtifact(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	seedSession(t, st, "u1", "s1", day(2, 9), 3, 0.3, 0)
	artifacts := newTestArtifacts(t)
	gen := NewGenerator(st, refusingReports{st}, artifacts, nil)
	meta := createReport(t, st, "u1", "2026-03-01", "2026-03-02")

	if err := gen.Generate(context.Background(), meta.ID, "u1", "2026-03-01", "2026-03-02"); err == nil {
		t.Fatal("Generate() succeeded although completion failed")
	}
	if _, err := artifacts.Load(context.Background(), ArtifactPath("u1", meta.ID)); !errors.Is(err, ErrArtifactNotFound) {
		t.Errorf("partial artifact retained: Load() error = %v", err)
	}
	if got, _ := st.GetReport(context.Background(), meta.ID); got.Status != models.ReportStatusFailed {
		t.Errorf("status = %s, want FAILED", got.Status)
	}
}

func TestGenerator_FeedbackFailureUsesFallback(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	seedSession(t, st, "u1", "s1", day(2, 9), 3, 0.3, 0)
	artifacts := newTestArtifacts(t)
	gen := NewGenerator(st, st, artifacts, &stubFeedback{err: errors.New("model offline")})
	meta := createReport(t, st, "u1", "2026-03-01", "2026-03-02")

	if err := gen.Generate(context.Background(), meta.ID, "u1", "2026-03-01", "2026-03-02"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	raw, err := artifacts.Load(context.Background(), ArtifactPath("u1", meta.ID))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), FallbackFeedback) {
		t.Errorf("artifact lacks fallback feedback: %s", raw)
	}
}

func TestGenerator_Paging(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	for i := 0; i < 5; i++ {
		seedSession(t, st, "u1", "s"+string(rune('a'+i)), day(2, 8+i), 2, 0.3, 0)
	}
	artifacts := newTestArtifacts(t)
	fb := &stubFeedback{text: "ok"}
	gen := NewGenerator(st, st, artifacts, fb)
	gen.pageSize = 2
	meta := createReport(t, st, "u1", "2026-03-02", "2026-03-02")

	if err := gen.Generate(context.Background(), meta.ID, "u1", "2026-03-02", "2026-03-02"); err != nil {
		t.Fatal(err)
	}
	if got := fb.facts[0].Sessions; got != 5 {
		t.Errorf("sessions across pages = %d, want 5", got)
	}
}

func TestGenerator_StartAndWait(t *testing.T) {
	t.Parallel()
	st := newTestStore(t)
	seedSession(t, st, "u1", "s1", day(2, 9), 3, 0.3, 0)
	gen := NewGenerator(st, st, newTestArtifacts(t), nil)
	meta := createReport(t, st, "u1", "2026-03-01", "2026-03-02")

	ctx, cancel := context.WithCancel(context.Background())
	gen.Start(ctx, meta)
	cancel() // generation is detached from the request context

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := gen.Wait(waitCtx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got, _ := st.GetReport(context.Background(), meta.ID); got.Status != models.ReportStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", got.Status)
	}
}

func TestParseDateRange(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		start, end string
		wantErr    bool
		wantSpan   float64
	}{
		{"single day", "2026-03-01", "2026-03-01", false, 86400},
		{"week", "2026-03-01", "2026-03-07", false, 7 * 86400},
		{"inverted", "2026-03-07", "2026-03-01", true, 0},
		{"bad start", "03/01/2026", "2026-03-01", true, 0},
		{"bad end", "2026-03-01", "", true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			from, to, err := ParseDateRange(tt.start, tt.end)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDateRange) {
					t.Errorf("error = %v, want ErrInvalidDateRange", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if to-from != tt.wantSpan {
				t.Errorf("span = %v, want %v", to-from, tt.wantSpan)
			}
		})
	}
}
