// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package api serves report requests, health, and metrics over HTTP using the
chi router.

Routes:

	GET  /healthz                       component health, 503 when unhealthy
	GET  /metrics                       Prometheus exposition
	POST /api/v1/reports                create a report request (202)
	GET  /api/v1/reports/{id}           report metadata and status
	GET  /api/v1/reports/{id}/content   finished report document

Report generation runs in the background after POST returns. Clients poll
the metadata route until status is COMPLETED or FAILED.

Responses under /api/v1 use one envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}, "meta": {...}}

The content route returns the stored report document itself.

Reports that reached COMPLETED or FAILED never change, so the handler keeps
their metadata and documents in a bounded LRU (see Config.CacheSize).
*/
package api
