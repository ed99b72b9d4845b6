// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/attentive/internal/api"
	"github.com/tomtom215/attentive/internal/config"
	"github.com/tomtom215/attentive/internal/eventprocessor"
	"github.com/tomtom215/attentive/internal/ingest"
	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/report"
	"github.com/tomtom215/attentive/internal/store"
	"github.com/tomtom215/attentive/internal/supervisor"
	"github.com/tomtom215/attentive/internal/supervisor/services"
)

const reportDrainTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var embedded bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run ingestion, persistence and the report API in one process",
		Long: `Runs the ingestion endpoint (always forwarding), the persistence consumer
and the HTTP API for health, metrics and reports. With --embedded-relay the
NATS relay also runs in process on RELAY_HOST:RELAY_PORT.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("embedded-relay") {
				a.cfg.Relay.Embedded = embedded
			}
			return runServe(cmd.Context(), a.cfg)
		},
	}
	cmd.Flags().BoolVar(&embedded, "embedded-relay", false, "run nats-server in process (overrides RELAY_EMBEDDED)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireStore(); err != nil {
		return err
	}
	health := eventprocessor.NewHealthChecker(cfg.APIConfig().HealthTimeout)

	var relay *eventprocessor.EmbeddedServer
	if cfg.Relay.Embedded {
		var err error
		relay, err = eventprocessor.NewEmbeddedServer(cfg.EmbeddedServerConfig())
		if err != nil {
			return fmt.Errorf("start embedded relay: %w", err)
		}
		health.RegisterComponent("relay", relay)
		logging.Info().Str("url", relay.ClientURL()).Msg("Embedded relay started")
	}

	consumer, err := newConsumer(cfg)
	if err != nil {
		return err
	}
	health.RegisterComponent("consumer", consumer)

	pub, err := newRelayPublisher(cfg)
	if err != nil {
		return err
	}
	defer closePublisher(pub)
	health.RegisterComponent("publisher", pub)

	ingestSrv, err := ingest.NewServer(cfg.IngestServerConfig(), pub)
	if err != nil {
		return fmt.Errorf("create ingest server: %w", err)
	}
	health.RegisterComponent("ingest", ingestHealth(ingestSrv))

	// Report queries use their own connection; the consumer's store handle
	// is never shared.
	reportStore, err := store.NewMongoStore(cfg.MongoStoreConfig())
	if err != nil {
		return fmt.Errorf("create report store: %w", err)
	}
	if err := reportStore.Connect(ctx); err != nil {
		return fmt.Errorf("%w: %w", eventprocessor.ErrStoreUnavailable, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := reportStore.Close(closeCtx); err != nil {
			logging.Warn().Err(err).Msg("Error closing report store")
		}
	}()
	health.RegisterComponent("store", storeHealth(reportStore))

	artifacts, err := report.OpenArtifactStore(cfg.Report.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := artifacts.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing artifact store")
		}
	}()

	generator := report.NewGenerator(reportStore, reportStore, artifacts, newFeedback(cfg, health))

	apiCfg := cfg.APIConfig()
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(api.NewHandler(reportStore, generator, artifacts, health, apiCfg), apiCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return runTree(ctx, cfg, func(tree *supervisor.Tree) {
		if relay != nil {
			tree.Add(supervisor.LayerMessaging, services.NewEmbeddedRelayService(relay, cfg.Server.ShutdownTimeout))
		}
		tree.Add(supervisor.LayerMessaging, services.NewIngestService(ingestSrv))
		tree.Add(supervisor.LayerData, services.NewConsumerService(consumer))
		tree.Add(supervisor.LayerData, services.NewReportDrainService(generator, reportDrainTimeout))
		tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(httpSrv, cfg.Server.ShutdownTimeout))
	})
}

// newFeedback uses the HTTP generator when FEEDBACK_URL is set and the local
// rules otherwise.
func newFeedback(cfg *config.Config, health *eventprocessor.HealthChecker) report.FeedbackGenerator {
	if cfg.Report.FeedbackURL == "" {
		logging.Info().Msg("Using rule-based coaching feedback")
		return report.RuleFeedback{}
	}
	fbCfg := cfg.FeedbackConfig()
	fb := report.NewHTTPFeedback(fbCfg, nil)
	health.RegisterComponent("feedback", eventprocessor.HealthCheckFunc(func(context.Context) eventprocessor.ComponentHealth {
		state := fb.State()
		return eventprocessor.ComponentHealth{
			Healthy:  true,
			Degraded: state != "closed",
			Message:  "circuit breaker " + state,
			Details:  map[string]any{"url": fbCfg.URL, "model": fbCfg.Model},
		}
	}))
	logging.Info().Str("url", fbCfg.URL).Str("model", fbCfg.Model).Msg("Using HTTP coaching feedback")
	return fb
}

func storeHealth(p store.Pinger) eventprocessor.HealthCheckable {
	return eventprocessor.HealthCheckFunc(func(ctx context.Context) eventprocessor.ComponentHealth {
		if err := p.Ping(ctx); err != nil {
			return eventprocessor.ComponentHealth{Healthy: false, Error: err.Error()}
		}
		return eventprocessor.ComponentHealth{Healthy: true, Message: "store reachable"}
	})
}

func ingestHealth(srv *ingest.Server) eventprocessor.HealthCheckable {
	return eventprocessor.HealthCheckFunc(func(context.Context) eventprocessor.ComponentHealth {
		stats := srv.Stats()
		return eventprocessor.ComponentHealth{
			Healthy: true,
			Message: "ingestion endpoint running",
			Details: map[string]any{
				"connections_active": stats.ConnectionsActive,
				"data_frames":        stats.DataFrames,
				"forward_failures":   stats.ForwardFailures,
			},
		}
	})
}
