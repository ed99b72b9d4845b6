// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import (
	"fmt"
	"time"

	"github.com/tomtom215/attentive/internal/models"
)

// DateLayout is the calendar-day format used in report requests.
const DateLayout = "2006-01-02"

// ParseDateRange converts inclusive UTC calendar days to a half-open
// [from, to) window in epoch seconds. to is midnight after end.
func ParseDateRange(start, end string) (from, to float64, err error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: start %q: %v", ErrInvalidDateRange, start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: end %q: %v", ErrInvalidDateRange, end, err)
	}
	if e.Before(s) {
		return 0, 0, fmt.Errorf("%w: end %s before start %s", ErrInvalidDateRange, end, start)
	}
	return models.EpochSeconds(s), models.EpochSeconds(e.AddDate(0, 0, 1)), nil
}

// ArtifactPath is the storage path of a report artifact.
func ArtifactPath(userID, reportID string) string {
	return userID + "/" + reportID + ".json"
}
