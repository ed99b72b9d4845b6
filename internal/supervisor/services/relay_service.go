// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/attentive/internal/logging"
)

// EmbeddedRelay is satisfied by *eventprocessor.EmbeddedServer.
type EmbeddedRelay interface {
	IsRunning() bool
	ClientURL() string
	Shutdown(ctx context.Context) error
}

// EmbeddedRelayService owns an in-process relay that is already running.
type EmbeddedRelayService struct {
	relay           EmbeddedRelay
	checkInterval   time.Duration
	shutdownTimeout time.Duration
	name            string
}

// NewEmbeddedRelayService wraps relay. The relay is shut down when the
// service stops.
func NewEmbeddedRelayService(relay EmbeddedRelay, shutdownTimeout time.Duration) *EmbeddedRelayService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedRelayService{
		relay:           relay,
		checkInterval:   time.Second,
		shutdownTimeout: shutdownTimeout,
		name:            "embedded-relay",
	}
}

// Serve implements suture.Service. It blocks until ctx is canceled and
// terminates the tree if the relay stops on its own, since a stopped
// nats-server cannot be restarted in place.
func (s *EmbeddedRelayService) Serve(ctx context.Context) error {
	if !s.relay.IsRunning() {
		return fmt.Errorf("%w: %s is not running", suture.ErrTerminateSupervisorTree, s.name)
	}
	logging.Info().Str("url", s.relay.ClientURL()).Msg("Embedded relay running")

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.relay.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("%s shutdown failed: %w", s.name, err)
			}
			logging.Info().Msg("Embedded relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if !s.relay.IsRunning() {
				logging.Error().Str("url", s.relay.ClientURL()).Msg("Embedded relay stopped unexpectedly")
				return fmt.Errorf("%w: %s stopped unexpectedly", suture.ErrTerminateSupervisorTree, s.name)
			}
		}
	}
}

func (s *EmbeddedRelayService) String() string {
	return s.name
}
