// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/attentive/internal/config"
	"github.com/tomtom215/attentive/internal/eventprocessor"
	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/store"
	"github.com/tomtom215/attentive/internal/supervisor"
	"github.com/tomtom215/attentive/internal/supervisor/services"
)

func newSaverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "saver",
		Short: "Persist relay events to the durable store",
		Long: `Subscribes to the relay channel and writes every data event to MongoDB in
arrival order. SESSION_END messages are recorded as checkpoints and not stored.
Exits non-zero if the store is unreachable at startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSaver(cmd.Context(), a.cfg)
		},
	}
}

func runSaver(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireStore(); err != nil {
		return err
	}
	consumer, err := newConsumer(cfg)
	if err != nil {
		return err
	}
	return runTree(ctx, cfg, func(tree *supervisor.Tree) {
		tree.Add(supervisor.LayerData, services.NewConsumerService(consumer))
	})
}

// newConsumer builds a consumer that owns its own store and relay handles.
func newConsumer(cfg *config.Config) (*eventprocessor.PersistenceConsumer, error) {
	st, err := store.NewMongoStore(cfg.MongoStoreConfig())
	if err != nil {
		return nil, fmt.Errorf("create event store: %w", err)
	}
	dialer, err := eventprocessor.NewNATSDialer(cfg.RelayClientConfig(), logging.NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create relay dialer: %w", err)
	}
	consumer, err := eventprocessor.NewPersistenceConsumer(dialer, st, cfg.ConsumerConfig())
	if err != nil {
		return nil, fmt.Errorf("create persistence consumer: %w", err)
	}
	return consumer, nil
}
