// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package middleware provides HTTP middleware for the report and health API.

All middleware uses the chi signature func(http.Handler) http.Handler:

  - RequestID: reuses or generates X-Request-ID and puts it in the logging context
  - PrometheusMetrics: records request latency by method, route pattern, and status
  - AccessLog: one zerolog line per request

Route labels come from the chi route pattern (for example
/api/v1/reports/{id}), so report IDs never become metric labels.
*/
package middleware
