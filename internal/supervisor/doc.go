// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package supervisor runs the long-lived Attentive processes under a suture v4
tree.

# Overview

Services are grouped into three layers so that a failure in one does not
restart the others:

	RootSupervisor ("attentive")
	├── DataSupervisor ("data-layer")
	│   ├── ConsumerService (saver, serve)
	│   └── ReportDrainService (serve)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EmbeddedRelayService (RELAY_EMBEDDED)
	│   └── IngestService (ingest, serve)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService (serve)

Which services are added depends on the subcommand; an empty layer is
harmless.

# Restart policy

Crashed services are restarted with suture's backoff. Two cases end the
whole tree instead:

  - the durable store is unreachable when the consumer starts
  - the embedded relay has stopped and cannot be restarted in place

Both return an error wrapping suture.ErrTerminateSupervisorTree, so Serve
returns a non-nil error and the binary exits non-zero for the orchestrator
to restart it.

# Logging

Supervisor events go through sutureslog to a slog.Logger bridged onto the
process zerolog logger (see logging.NewSlogLogger).

# Usage

	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.Add(supervisor.LayerData, services.NewConsumerService(consumer))
	tree.Add(supervisor.LayerMessaging, services.NewIngestService(ingestServer))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(httpServer, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
