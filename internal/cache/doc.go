// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package cache provides a bounded, TTL-aware LRU cache.

The API layer keeps finished reports here. A report in a terminal state never
changes again, so its metadata and its rendered document can be served from
memory instead of re-reading the metadata store and the artifact store on
every request.

	c := cache.NewLRU[[]byte](256, 10*time.Minute)
	c.Add(reportID, body)
	if body, ok := c.Get(reportID); ok {
	    // serve body
	}

Entries expire lazily on Get and in bulk through CleanupExpired. All methods
are safe for concurrent use.
*/
package cache
