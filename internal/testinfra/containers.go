// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

//go:build integration

package testinfra

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
)

// StartMongo starts a MongoDB container for the duration of t. The test is
// skipped when no container provider is reachable, and the container is
// removed when t ends.
func StartMongo(t *testing.T, opts ...MongoOption) *MongoContainer {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	mongo, err := NewMongoContainer(context.Background(), opts...)
	if mongo != nil {
		testcontainers.CleanupContainer(t, mongo.Container)
	}
	if err != nil {
		t.Fatalf("start mongo: %v", err)
	}
	return mongo
}
