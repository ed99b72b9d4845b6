// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/metrics"
	"github.com/tomtom215/attentive/internal/models"
	"github.com/tomtom215/attentive/internal/store"
)

// DefaultPageSize is the session page size used when listing a user's sessions.
const DefaultPageSize = 1000

// Generator produces report artifacts and drives report status.
type Generator struct {
	sessions  store.SessionQuerier
	reports   store.ReportMetadataStore
	artifacts Artifacts
	feedback  FeedbackGenerator

	pageSize int
	now      func() time.Time

	wg sync.WaitGroup
}

// NewGenerator creates a Generator. feedback may be nil for RuleFeedback.
func NewGenerator(sessions store.SessionQuerier, reports store.ReportMetadataStore, artifacts Artifacts, feedback FeedbackGenerator) *Generator {
	if feedback == nil {
		feedback = RuleFeedback{}
	}
	return &Generator{
		sessions:  sessions,
		reports:   reports,
		artifacts: artifacts,
		feedback:  feedback,
		pageSize:  DefaultPageSize,
		now:       time.Now,
	}
}

// Start runs Generate for meta in the background. The run is detached from
// ctx cancellation so a finished HTTP request does not abort it; use Wait
// to drain running generations on shutdown.
func (g *Generator) Start(ctx context.Context, meta models.ReportMetadata) {
	runCtx := context.WithoutCancel(ctx)
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.Generate(runCtx, meta.ID, meta.UserID, meta.StartDate, meta.EndDate); err != nil {
			logging.Ctx(runCtx).Warn().Err(err).Str("report_id", meta.ID).Msg("Report generation failed")
		}
	}()
}

// Wait blocks until all reports started with Start have finished or ctx ends.
func (g *Generator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Generate builds and stores the report for reportID and sets its final
// status. A nil return means COMPLETED; any error means FAILED with no
// artifact left behind.
func (g *Generator) Generate(ctx context.Context, reportID, userID, start, end string) (err error) {
	began := g.now()
	log := logging.Ctx(ctx).With().Str("report_id", reportID).Str("user_id", userID).Logger()
	log.Info().Str("start", start).Str("end", end).Msg("Report generation started")

	saved := ""
	defer func() {
		status := models.ReportStatusCompleted
		if err != nil {
			status = models.ReportStatusFailed
			g.fail(ctx, reportID, saved)
		}
		metrics.RecordReport(string(status), g.now().Sub(began))
	}()

	report, err := g.build(ctx, reportID, userID, start, end)
	if err != nil {
		return err
	}
	log.Debug().Int("sessions", len(report.Sessions)).Msg("Report data aggregated")

	report.LLMSummary = SummarySentence(report)
	feedback, ferr := g.feedback.Feedback(ctx, FactsFor(report))
	if ferr != nil {
		log.Warn().Err(ferr).Msg("Coaching feedback unavailable, using fallback")
		feedback = FallbackFeedback
	}
	report.CoachingFeedback = feedback
	report.GeneratedAt = g.now().UTC()

	path := ArtifactPath(userID, reportID)
	if err := g.artifacts.Save(ctx, path, report); err != nil {
		return fmt.Errorf("save report artifact: %w", err)
	}
	saved = path

	if err := g.reports.UpdateReportStatus(ctx, reportID, models.ReportStatusCompleted, path); err != nil {
		return fmt.Errorf("mark report completed: %w", err)
	}
	log.Info().Str("path", path).Dur("elapsed", g.now().Sub(began)).Msg("Report generation completed")
	return nil
}

func (g *Generator) build(ctx context.Context, reportID, userID, start, end string) (*models.Report, error) {
	from, to, err := ParseDateRange(start, end)
	if err != nil {
		return nil, err
	}

	var refs []models.SessionRef
	for page := 0; ; page++ {
		p, err := g.sessions.SessionsByUser(ctx, userID, from, to, page, g.pageSize)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		refs = append(refs, p.Sessions...)
		if len(p.Sessions) < g.pageSize || int64(len(refs)) >= p.Total {
			break
		}
	}
	if len(refs) == 0 {
		return nil, ErrNoSessions
	}

	analyses := make([]models.SessionAnalysis, 0, len(refs))
	for _, ref := range refs {
		a, err := g.sessions.AnalyzeSession(ctx, ref.SessionID)
		if err != nil {
			return nil, fmt.Errorf("analyze session %s: %w", ref.SessionID, err)
		}
		analyses = append(analyses, a)
	}

	return &models.Report{
		ReportID:  reportID,
		UserID:    userID,
		DateRange: models.DateRange{Start: start, End: end},
		Summary:   Summarize(analyses),
		Sessions:  analyses,
	}, nil
}

// fail marks the report FAILED and removes a saved artifact. It runs after
// ctx may have ended, so it uses a detached context.
func (g *Generator) fail(ctx context.Context, reportID, savedPath string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if savedPath != "" {
		if err := g.artifacts.Delete(cleanupCtx, savedPath); err != nil {
			logging.Error().Err(err).Str("report_id", reportID).Str("path", savedPath).Msg("Failed to remove partial report artifact")
		}
	}
	if err := g.reports.UpdateReportStatus(cleanupCtx, reportID, models.ReportStatusFailed, ""); err != nil {
		logging.Error().Err(err).Str("report_id", reportID).Msg("Failed to mark report as failed")
	}
}
