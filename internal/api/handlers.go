// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/attentive/internal/cache"
	"github.com/tomtom215/attentive/internal/eventprocessor"
	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/models"
	"github.com/tomtom215/attentive/internal/report"
	"github.com/tomtom215/attentive/internal/store"
	"github.com/tomtom215/attentive/internal/validation"
)

// ReportStarter starts background generation for a created report.
type ReportStarter interface {
	Start(ctx context.Context, meta models.ReportMetadata)
}

// ArtifactLoader reads finished report documents.
type ArtifactLoader interface {
	Load(ctx context.Context, path string) ([]byte, error)
}

// HealthReporter aggregates component health.
type HealthReporter interface {
	CheckAll(ctx context.Context) eventprocessor.OverallHealth
}

// Handler holds the dependencies of all routes.
type Handler struct {
	reports   store.ReportMetadataStore
	generator ReportStarter
	artifacts ArtifactLoader
	health    HealthReporter
	maxBody   int64

	// Terminal reports never change, so their metadata and documents are
	// cached by report ID.
	finished *cache.LRU[models.ReportMetadata]
	content  *cache.LRU[[]byte]
}

// NewHandler creates a Handler. health may be nil, in which case /healthz
// reports only that the API is up.
func NewHandler(reports store.ReportMetadataStore, generator ReportStarter, artifacts ArtifactLoader, health HealthReporter, cfg Config) *Handler {
	return &Handler{
		reports:   reports,
		generator: generator,
		artifacts: artifacts,
		health:    health,
		maxBody:   cfg.MaxBodyBytes,
		finished:  cache.NewLRU[models.ReportMetadata](cfg.CacheSize, cfg.CacheTTL),
		content:   cache.NewLRU[[]byte](cfg.CacheSize, cfg.CacheTTL),
	}
}

// CacheStats returns the counters of the finished-report caches.
func (h *Handler) CacheStats() (metadata, content cache.Stats) {
	return h.finished.Stats(), h.content.Stats()
}

// CreateReportResponse is the data of a 202 from POST /api/v1/reports.
type CreateReportResponse struct {
	ReportID string              `json:"reportId"`
	Status   models.ReportStatus `json:"status"`
}

// CreateReport validates the request, stores PENDING metadata, and starts
// generation in the background.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.ReportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		rw.BadRequest(fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return
	}

	meta, err := h.reports.CreateReport(r.Context(), req)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("report_id", meta.ID).
		Str("user_id", meta.UserID).
		Str("start", meta.StartDate).
		Str("end", meta.EndDate).
		Msg("Report requested")

	h.generator.Start(r.Context(), meta)
	rw.Accepted(CreateReportResponse{ReportID: meta.ID, Status: meta.Status})
}

// GetReport returns report metadata.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	meta, ok := h.lookup(rw, r)
	if !ok {
		return
	}
	rw.Success(meta)
}

// GetReportContent returns the finished report document. Reports that are
// not COMPLETED answer 409 with their current status.
func (h *Handler) GetReportContent(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	meta, ok := h.lookup(rw, r)
	if !ok {
		return
	}
	if meta.Status != models.ReportStatusCompleted {
		rw.ErrorWithDetails(http.StatusConflict, ErrCodeConflict,
			"Report is not completed", map[string]any{"status": meta.Status})
		return
	}

	data, ok := h.content.Get(meta.ID)
	if ok {
		writeRaw(r.Context(), w, data)
		return
	}
	data, err := h.artifacts.Load(r.Context(), meta.StoragePath)
	if errors.Is(err, report.ErrArtifactNotFound) {
		rw.NotFound("Report content not found")
		return
	}
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	h.content.Add(meta.ID, data)
	writeRaw(r.Context(), w, data)
}

func writeRaw(ctx context.Context, w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Client went away during report download")
	}
}

func (h *Handler) lookup(rw *ResponseWriter, r *http.Request) (models.ReportMetadata, bool) {
	id := chi.URLParam(r, "id")
	if meta, ok := h.finished.Get(id); ok {
		return meta, true
	}
	meta, err := h.reports.GetReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		rw.NotFound("Report not found")
		return models.ReportMetadata{}, false
	}
	if err != nil {
		rw.DatabaseError(err)
		return models.ReportMetadata{}, false
	}
	if meta.Status.Terminal() {
		h.finished.Add(id, meta)
	}
	return meta, true
}

// Health reports component health. Degraded answers 200; unhealthy 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		writeJSON(w, http.StatusOK, eventprocessor.OverallHealth{
			Healthy: true,
			Status:  eventprocessor.HealthStatusHealthy,
		})
		return
	}
	overall := h.health.CheckAll(r.Context())
	status := http.StatusOK
	if !overall.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, overall)
}
