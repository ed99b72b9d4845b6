// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Package loadgen drives synthetic load through the pipeline.
//
// StressPublisher writes data events straight to the relay followed by one
// SESSION_END, for measuring persistence throughput and checkpoint lag.
// WSLoadClient opens many websocket connections to the ingestion endpoint
// and streams landmark frames at camera rate.
package loadgen
