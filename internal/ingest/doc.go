// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package ingest is the websocket endpoint clients stream landmark frames to.

Each connection gets its own read loop and ping writer. A frame is decoded,
and for "data" frames the attention metrics are computed from its landmarks.
Nothing is ever written back to the client apart from keep-alive pings.

# Modes

Without a Forwarder (the default) computed metrics are discarded; the
endpoint only measures. With a Forwarder every data frame is published to
the relay unchanged except for its payload, which gains the computed
metrics and a per-connection sequence number:

	{"sessionId":"s1","eventType":"data","timestamp":1700000000.1,
	 "payload":{"landmarks":[...],"earLeft":0.31,"earRight":0.29,
	            "ear":0.30,"mar":0.02,"yaw":-0.04,"sequence":17}}

SESSION_END frames are forwarded as the relay sentinel. Publishing is
fire-and-forget: failures are counted and logged, never reported to the
client, and never close the connection.

# Failure handling

Undecodable frames are counted and skipped. A read error or remote close
ends that connection only; other connections are unaffected.
*/
package ingest
