// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package models

import "time"

// ReportStatus is the lifecycle state of a report request.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

// Terminal reports whether no further transition is expected.
func (s ReportStatus) Terminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

// ReportRequest is the body of POST /api/v1/reports.
// Dates are inclusive calendar days in YYYY-MM-DD form.
type ReportRequest struct {
	ReportTitle string `json:"reportTitle" validate:"max=200"`
	UserID      string `json:"userId" validate:"required,max=128"`
	StartDate   string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// ReportMetadata is the stored record tracking one report request.
type ReportMetadata struct {
	ID          string       `json:"reportId" bson:"_id"`
	ReportTitle string       `json:"reportTitle" bson:"reportTitle"`
	UserID      string       `json:"userId" bson:"userId"`
	StartDate   string       `json:"startDate" bson:"startDate"`
	EndDate     string       `json:"endDate" bson:"endDate"`
	Status      ReportStatus `json:"status" bson:"status"`
	StoragePath string       `json:"storagePath,omitempty" bson:"storagePath,omitempty"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// SessionRef is one row of the sessions-by-user listing.
type SessionRef struct {
	SessionID  string  `json:"sessionId" bson:"_id"`
	UserID     string  `json:"userId" bson:"userId"`
	FirstEvent float64 `json:"firstEvent" bson:"firstEvent"`
	LastEvent  float64 `json:"lastEvent" bson:"lastEvent"`
	EventCount int64   `json:"eventCount" bson:"eventCount"`
}

// SessionPage is a page of SessionRef plus the unpaged total.
type SessionPage struct {
	Total    int64        `json:"total"`
	Sessions []SessionRef `json:"sessions"`
}

// SessionAnalysis is the per-session aggregate embedded in a report.
type SessionAnalysis struct {
	SessionID       string  `json:"sessionId" bson:"_id"`
	UserID          string  `json:"userId" bson:"userId"`
	StartTime       float64 `json:"startTime" bson:"startTime"`
	EndTime         float64 `json:"endTime" bson:"endTime"`
	DurationSeconds float64 `json:"durationSeconds" bson:"durationSeconds"`
	EventCount      int64   `json:"eventCount" bson:"eventCount"`
	AvgEAR          float64 `json:"avgEar" bson:"avgEar"`
	AvgMAR          float64 `json:"avgMar" bson:"avgMar"`
	AvgYaw          float64 `json:"avgYaw" bson:"avgYaw"`
	// DrowsyRatio is the share of events with EAR below the drowsiness threshold.
	DrowsyRatio float64 `json:"drowsyRatio" bson:"drowsyRatio"`
	// DistractedRatio is the share of events with |yaw| above the distraction threshold.
	DistractedRatio float64 `json:"distractedRatio" bson:"distractedRatio"`
}

// DateRange is the inclusive report window.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ReportSummary holds report-wide totals.
type ReportSummary struct {
	TotalSessions int     `json:"totalSessions"`
	TotalEvents   int64   `json:"totalEvents"`
	TotalSeconds  float64 `json:"totalSeconds"`
}

// Report is the finished artifact written for COMPLETED requests.
type Report struct {
	ReportID         string            `json:"reportId"`
	UserID           string            `json:"userId"`
	DateRange        DateRange         `json:"dateRange"`
	Summary          ReportSummary     `json:"summary"`
	Sessions         []SessionAnalysis `json:"sessions"`
	LLMSummary       string            `json:"llmSummary"`
	CoachingFeedback string            `json:"coachingFeedback"`
	GeneratedAt      time.Time         `json:"generatedAt"`
}
