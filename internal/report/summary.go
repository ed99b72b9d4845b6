// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/attentive/internal/models"
)

// Facts are the report-wide aggregates handed to a FeedbackGenerator.
// Averages and ratios are weighted by event count.
type Facts struct {
	UserID          string
	DateRange       models.DateRange
	Sessions        int
	Events          int64
	Duration        time.Duration
	AvgEAR          float64
	AvgMAR          float64
	AvgYaw          float64
	DrowsyRatio     float64
	DistractedRatio float64
	// Sentence is the SummarySentence of the same report.
	Sentence string
}

// Summarize returns the report-wide totals for a set of analyzed sessions.
func Summarize(sessions []models.SessionAnalysis) models.ReportSummary {
	sum := models.ReportSummary{TotalSessions: len(sessions)}
	for _, s := range sessions {
		sum.TotalEvents += s.EventCount
		sum.TotalSeconds += s.DurationSeconds
	}
	return sum
}

// FactsFor computes Facts for r.
func FactsFor(r *models.Report) Facts {
	f := aggregate(r)
	f.Sentence = SummarySentence(r)
	return f
}

func aggregate(r *models.Report) Facts {
	f := Facts{
		UserID:    r.UserID,
		DateRange: r.DateRange,
		Sessions:  len(r.Sessions),
	}
	var seconds float64
	for _, s := range r.Sessions {
		w := float64(s.EventCount)
		f.Events += s.EventCount
		seconds += s.DurationSeconds
		f.AvgEAR += s.AvgEAR * w
		f.AvgMAR += s.AvgMAR * w
		f.AvgYaw += s.AvgYaw * w
		f.DrowsyRatio += s.DrowsyRatio * w
		f.DistractedRatio += s.DistractedRatio * w
	}
	f.Duration = secondsDuration(seconds)
	if f.Events > 0 {
		n := float64(f.Events)
		f.AvgEAR /= n
		f.AvgMAR /= n
		f.AvgYaw /= n
		f.DrowsyRatio /= n
		f.DistractedRatio /= n
	}
	return f
}

// SummarySentence is a deterministic plain-language statement of the
// report's facts. The same report always yields the same text.
func SummarySentence(r *models.Report) string {
	if len(r.Sessions) == 0 {
		return fmt.Sprintf("No sessions were recorded for %s between %s and %s.",
			r.UserID, r.DateRange.Start, r.DateRange.End)
	}
	f := aggregate(r)

	var b strings.Builder
	fmt.Fprintf(&b, "Between %s and %s, %s completed %d %s over %s with %d measurements.",
		r.DateRange.Start, r.DateRange.End, r.UserID,
		f.Sessions, plural(f.Sessions, "session", "sessions"), f.Duration, f.Events)
	fmt.Fprintf(&b, " Average eye aspect ratio was %.3f and average head yaw was %.3f.", f.AvgEAR, f.AvgYaw)
	fmt.Fprintf(&b, " Eyes were closing in %.1f%% of measurements and attention was turned away in %.1f%%.",
		percent(f.DrowsyRatio), percent(f.DistractedRatio))

	longest := r.Sessions[0]
	for _, s := range r.Sessions[1:] {
		if s.DurationSeconds > longest.DurationSeconds {
			longest = s
		}
	}
	fmt.Fprintf(&b, " The longest session was %s at %s.",
		longest.SessionID, secondsDuration(longest.DurationSeconds))
	return b.String()
}

func secondsDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Second)
}

func percent(ratio float64) float64 {
	return math.Round(ratio*1000) / 10
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
