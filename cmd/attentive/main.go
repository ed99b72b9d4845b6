// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Command attentive runs the attention metrics pipeline.
//
//	attentive ingest   websocket endpoint on :9002
//	attentive saver    relay-to-store persistence consumer
//	attentive serve    everything in one process plus the report API
//	attentive stress   publish a synthetic session to the relay
//	attentive load     drive the websocket endpoint with virtual users
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/attentive/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error().Err(err).Msg("Attentive exited with error")
		os.Exit(1)
	}
}
