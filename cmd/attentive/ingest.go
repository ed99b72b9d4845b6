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
	"github.com/tomtom215/attentive/internal/ingest"
	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/supervisor"
	"github.com/tomtom215/attentive/internal/supervisor/services"
)

func newIngestCmd(a *app) *cobra.Command {
	var forward bool
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the websocket ingestion endpoint",
		Long: `Accepts landmark frames over websocket, computes attention metrics for
each data frame and, with --forward, publishes enriched frames to the relay.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("forward") {
				a.cfg.Ingest.Forward = forward
			}
			return runIngest(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().BoolVar(&forward, "forward", false, "publish enriched frames to the relay (overrides INGEST_FORWARD)")
	return cmd
}

func runIngest(ctx context.Context, cfg *config.Config) error {
	var fwd ingest.Forwarder
	if cfg.Ingest.Forward {
		pub, err := newRelayPublisher(cfg)
		if err != nil {
			return err
		}
		defer closePublisher(pub)
		fwd = pub
	}

	srv, err := ingest.NewServer(cfg.IngestServerConfig(), fwd)
	if err != nil {
		return fmt.Errorf("create ingest server: %w", err)
	}
	return runTree(ctx, cfg, func(tree *supervisor.Tree) {
		tree.Add(supervisor.LayerMessaging, services.NewIngestService(srv))
	})
}

func newRelayPublisher(cfg *config.Config) (*eventprocessor.Publisher, error) {
	pub, err := eventprocessor.NewNATSPublisher(cfg.RelayClientConfig(), logging.NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create relay publisher: %w", err)
	}
	logging.Info().Str("url", cfg.RelayURL()).Str("channel", cfg.Relay.Channel).Msg("Relay publisher created")
	return pub, nil
}

func closePublisher(pub *eventprocessor.Publisher) {
	if err := pub.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing relay publisher")
	}
}
