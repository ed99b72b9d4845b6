// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Package testinfra starts real dependencies in Docker for integration tests.
//
// Tests using this package carry the integration build tag and are skipped
// when no container provider is reachable:
//
//	func TestMongoStore(t *testing.T) {
//	    mongo := testinfra.StartMongo(t)
//	    st, _ := store.NewMongoStore(mongo.Config("attention_test"))
//	    // ...
//	}
//
// The NATS relay needs no container: tests run the embedded server from
// the eventprocessor package on a random port.
package testinfra
