// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

/*
Package report builds per-user attention reports from stored session events.

A report request names a user and an inclusive date range. Generation runs
in five steps:

 1. List the user's sessions in the range (paged, 1000 per page).
 2. Aggregate each session (averages, drowsy and distracted ratios).
 3. Write a deterministic fact sentence with SummarySentence.
 4. Ask a FeedbackGenerator for coaching text. RuleFeedback runs locally;
    HTTPFeedback calls an external text-generation endpoint behind a
    circuit breaker.
 5. Save the artifact as {userId}/{reportId}.json in the ArtifactStore and
    mark the request COMPLETED with that path.

Any error marks the request FAILED and removes a saved artifact, so a FAILED
request never has content. A feedback failure is not an error: the report
carries a fallback message instead.

Artifacts live in BadgerDB:

	store, err := report.OpenArtifactStore("/var/lib/attentive/reports")
	gen := report.NewGenerator(mongoStore, mongoStore, store, report.RuleFeedback{})
	gen.Start(ctx, meta)
*/
package report
