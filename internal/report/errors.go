// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import "errors"

var (
	// ErrNoSessions is returned when the user has no sessions in the range.
	ErrNoSessions = errors.New("no sessions in date range")

	// ErrInvalidDateRange is returned for unparseable or inverted dates.
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrArtifactNotFound is returned by Load for an unknown path.
	ErrArtifactNotFound = errors.New("report artifact not found")

	// ErrEmptyFeedback is returned when the feedback endpoint answers with no text.
	ErrEmptyFeedback = errors.New("feedback endpoint returned no text")

	// ErrFeedbackStatus is returned when the feedback endpoint answers non-2xx.
	ErrFeedbackStatus = errors.New("feedback endpoint error status")
)
