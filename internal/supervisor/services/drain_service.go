// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package services

import (
	"context"
	"time"

	"github.com/tomtom215/attentive/internal/logging"
)

// Drainer is satisfied by *report.Generator.
type Drainer interface {
	Wait(ctx context.Context) error
}

// ReportDrainService holds shutdown until in-flight report generations
// finish or the timeout passes.
type ReportDrainService struct {
	drainer Drainer
	timeout time.Duration
	name    string
}

// NewReportDrainService wraps a report generator.
func NewReportDrainService(drainer Drainer, timeout time.Duration) *ReportDrainService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReportDrainService{drainer: drainer, timeout: timeout, name: "report-drain"}
}

// Serve implements suture.Service.
func (s *ReportDrainService) Serve(ctx context.Context) error {
	<-ctx.Done()

	waitCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.drainer.Wait(waitCtx); err != nil {
		logging.Warn().Err(err).Dur("timeout", s.timeout).Msg("Report generations still running at shutdown")
	}
	return ctx.Err()
}

func (s *ReportDrainService) String() string {
	return s.name
}
