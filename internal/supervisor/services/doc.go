// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package services adapts Attentive components to suture.Service.

Each wrapper turns a component's own lifecycle (Run, ListenAndServe,
start-on-construct) into Serve(ctx) and reports failures in the form the
supervisor acts on:

  - IngestService: ingest.Server.Run. Listener failures restart it.
  - ConsumerService: PersistenceConsumer.Run. A store outage at startup
    terminates the tree; anything else restarts it.
  - EmbeddedRelayService: in-process nats-server. The server is started by
    its constructor, so this service only watches it and shuts it down. A
    stopped server terminates the tree.
  - ReportDrainService: waits for in-flight report generations on shutdown.
  - HTTPServerService: *http.Server with graceful shutdown.

All wrappers return ctx.Err() on cancellation and implement fmt.Stringer so
suture logs them by name.
*/
package services
