// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package loadgen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/attentive/internal/eventprocessor"
	"github.com/tomtom215/attentive/internal/logging"
)

// EventPublisher is satisfied by *eventprocessor.Publisher.
type EventPublisher interface {
	PublishEvent(ctx context.Context, channel string, ev eventprocessor.Marshaler) error
}

// StressConfig configures a StressPublisher run.
type StressConfig struct {
	Channel   string
	SessionID string
	UserID    string
	// Count is the number of data events before the sentinel.
	Count int
	// Rate caps events per second. 0 publishes as fast as possible.
	Rate float64
}

// DefaultStressConfig returns the standard 10 000 event run.
func DefaultStressConfig() StressConfig {
	return StressConfig{
		Channel:   eventprocessor.DefaultChannel,
		SessionID: "stress-test-session",
		UserID:    "load-tester",
		Count:     10000,
	}
}

// StressResult summarizes a run.
type StressResult struct {
	Published  int           `json:"published"`
	Duration   time.Duration `json:"duration"`
	Throughput float64       `json:"throughput"`
	// FinishedAt is when the sentinel was published.
	FinishedAt time.Time `json:"finishedAt"`
}

// StressPublisher publishes a fixed synthetic session to the relay.
type StressPublisher struct {
	pub     EventPublisher
	cfg     StressConfig
	limiter *rate.Limiter
}

// NewStressPublisher validates cfg and creates a StressPublisher.
func NewStressPublisher(pub EventPublisher, cfg StressConfig) (*StressPublisher, error) {
	if pub == nil {
		return nil, errors.New("publisher is required")
	}
	if cfg.Channel == "" || cfg.SessionID == "" {
		return nil, errors.New("channel and session id are required")
	}
	if cfg.Count < 0 {
		return nil, fmt.Errorf("count must not be negative: %d", cfg.Count)
	}
	s := &StressPublisher{pub: pub, cfg: cfg}
	if cfg.Rate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	return s, nil
}

// Run publishes Count data events with sequence 0..Count-1 and then one
// SESSION_END. It stops at the first publish error.
func (s *StressPublisher) Run(ctx context.Context) (StressResult, error) {
	var res StressResult
	log := logging.Ctx(ctx)
	log.Info().
		Str("channel", s.cfg.Channel).
		Str("session_id", s.cfg.SessionID).
		Int("count", s.cfg.Count).
		Float64("rate", s.cfg.Rate).
		Msg("Stress run started")

	start := time.Now()
	for i := 0; i < s.cfg.Count; i++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return s.finish(res, start), fmt.Errorf("rate limiter: %w", err)
			}
		}
		ev := eventprocessor.NewDataEvent(s.cfg.SessionID, s.cfg.UserID, time.Now(), map[string]any{
			"ear":      0.25,
			"mar":      0.01,
			"yaw":      0.05,
			"sequence": i,
		})
		if err := s.pub.PublishEvent(ctx, s.cfg.Channel, ev); err != nil {
			return s.finish(res, start), fmt.Errorf("publish event %d: %w", i, err)
		}
		res.Published++
	}

	end := eventprocessor.NewSessionEndEvent(s.cfg.SessionID, s.cfg.UserID, time.Now())
	if err := s.pub.PublishEvent(ctx, s.cfg.Channel, end); err != nil {
		return s.finish(res, start), fmt.Errorf("publish session end: %w", err)
	}
	res = s.finish(res, start)
	res.FinishedAt = time.Now()

	log.Info().
		Int("published", res.Published).
		Dur("duration", res.Duration).
		Float64("throughput", res.Throughput).
		Msg("Stress run completed")
	return res, nil
}

func (s *StressPublisher) finish(res StressResult, start time.Time) StressResult {
	res.Duration = time.Since(start)
	if secs := res.Duration.Seconds(); secs > 0 {
		res.Throughput = float64(res.Published) / secs
	}
	return res
}
