// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/attentive/internal/eventprocessor"
)

// Runner is a component that blocks in Run until ctx is canceled.
// *ingest.Server and *eventprocessor.PersistenceConsumer satisfy it.
type Runner interface {
	Run(ctx context.Context) error
}

// errStoppedEarly is returned when a Runner returns nil while ctx is live.
var errStoppedEarly = errors.New("stopped without cancellation")

// IngestService supervises the websocket ingestion endpoint.
type IngestService struct {
	server Runner
	name   string
}

// NewIngestService wraps an ingest server.
func NewIngestService(server Runner) *IngestService {
	return &IngestService{server: server, name: "ingest-endpoint"}
}

// Serve implements suture.Service.
func (s *IngestService) Serve(ctx context.Context) error {
	err := s.server.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errStoppedEarly
	}
	return fmt.Errorf("%s: %w", s.name, err)
}

func (s *IngestService) String() string {
	return s.name
}

// ConsumerService supervises the persistence consumer.
type ConsumerService struct {
	consumer Runner
	name     string
}

// NewConsumerService wraps a persistence consumer.
func NewConsumerService(consumer Runner) *ConsumerService {
	return &ConsumerService{consumer: consumer, name: "persistence-consumer"}
}

// Serve implements suture.Service. A store that cannot be reached at startup
// ends the whole tree; the process exits and its orchestrator restarts it.
func (s *ConsumerService) Serve(ctx context.Context) error {
	err := s.consumer.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, eventprocessor.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %s: %w", suture.ErrTerminateSupervisorTree, s.name, err)
	}
	if err == nil {
		err = errStoppedEarly
	}
	return fmt.Errorf("%s: %w", s.name, err)
}

func (s *ConsumerService) String() string {
	return s.name
}
