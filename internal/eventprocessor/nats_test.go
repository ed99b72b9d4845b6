// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/attentive/internal/store"
)

func startEmbeddedRelay(t *testing.T) *EmbeddedServer {
	t.Helper()
	cfg := DefaultServerConfig()
	cfg.Port = -1
	srv, err := NewEmbeddedServer(cfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func testRelayConfig(url string) RelayConfig {
	cfg := DefaultRelayConfig()
	cfg.URL = url
	cfg.ConnectTimeout = time.Second
	cfg.ReconnectWait = 50 * time.Millisecond
	return cfg
}

func TestEmbeddedServer_Lifecycle(t *testing.T) {
	t.Parallel()
	srv := startEmbeddedRelay(t)
	if !srv.IsRunning() {
		t.Fatal("IsRunning() = false")
	}
	if srv.ClientURL() == "" {
		t.Error("ClientURL() empty")
	}
	if h := srv.HealthCheck(context.Background()); !h.Healthy {
		t.Errorf("HealthCheck() = %+v", h)
	}
}

func TestNATSDialer_RefusedConnection(t *testing.T) {
	t.Parallel()
	// Port 1 is reserved and never runs a NATS server in test environments.
	dialer, err := NewNATSDialer(testRelayConfig("nats://127.0.0.1:1"), nil)
	if err != nil {
		t.Fatalf("NewNATSDialer() error = %v", err)
	}
	_, err = dialer.Dial(context.Background())
	if !errors.Is(err, ErrRelayUnavailable) {
		t.Fatalf("Dial() error = %v, want ErrRelayUnavailable", err)
	}
	if Classify(err) != CategoryTransient {
		t.Errorf("Classify() = %s, want transient", Classify(err))
	}
}

func TestNATSDialer_InvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := testRelayConfig("")
	if _, err := NewNATSDialer(cfg, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewNATSDialer() error = %v, want ErrInvalidConfig", err)
	}
}

func TestNATSDialer_PingAndState(t *testing.T) {
	t.Parallel()
	srv := startEmbeddedRelay(t)
	dialer, err := NewNATSDialer(testRelayConfig(srv.ClientURL()), nil)
	if err != nil {
		t.Fatal(err)
	}
	conn, err := dialer.Dial(context.Background())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if err := conn.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if conn.State() != StateConnected {
		t.Errorf("State() = %s, want CONNECTED", conn.State())
	}
}

func TestNATSRelay_EndToEnd(t *testing.T) {
	t.Parallel()
	srv := startEmbeddedRelay(t)
	relayCfg := testRelayConfig(srv.ClientURL())

	dialer, err := NewNATSDialer(relayCfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	st := store.NewMemoryStore()
	consumer, err := NewPersistenceConsumer(dialer, st, testConsumerConfig())
	if err != nil {
		t.Fatal(err)
	}
	checkpoint := make(chan Checkpoint, 1)
	consumer.SetCheckpointHandler(func(cp Checkpoint) { checkpoint <- cp })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run() error = %v", err)
		}
	}()

	select {
	case <-consumer.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("consumer not ready")
	}

	pub, err := NewNATSPublisher(relayCfg, nil)
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer pub.Close()

	const n = 100
	for i := 0; i < n; i++ {
		ev := NewDataEvent("nats-session", "u1", time.Now(), map[string]any{"sequence": i})
		if err := pub.PublishEvent(ctx, relayCfg.Channel, ev); err != nil {
			t.Fatalf("PublishEvent(%d) error = %v", i, err)
		}
	}
	if err := pub.PublishEvent(ctx, relayCfg.Channel, NewSessionEndEvent("nats-session", "u1", time.Now())); err != nil {
		t.Fatal(err)
	}

	select {
	case cp := <-checkpoint:
		if cp.SessionID != "nats-session" {
			t.Errorf("checkpoint session = %s", cp.SessionID)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("no checkpoint; stored %d", st.Len())
	}

	docs := st.Documents()
	if len(docs) != n {
		t.Fatalf("stored %d documents, want %d", len(docs), n)
	}
	for i, d := range docs {
		if d["payload"].(map[string]any)["sequence"] != int64(i) {
			t.Fatalf("document %d out of order: %v", i, d["payload"])
		}
	}
}

func TestNATSRelay_ConsumerRecoversFromServerRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping relay restart test in short mode")
	}
	t.Parallel()

	cfg := DefaultServerConfig()
	cfg.Port = -1
	srv, err := NewEmbeddedServer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	url := srv.ClientURL()

	relayCfg := testRelayConfig(url)
	relayCfg.MaxReconnects = 0
	dialer, _ := NewNATSDialer(relayCfg, nil)
	consumer, _ := NewPersistenceConsumer(dialer, store.NewMemoryStore(), testConsumerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()
	<-consumer.Ready()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 5*time.Second, func() bool {
		return consumer.Stats().RelayState != StateConnected
	}, "relay loss detected")

	h := consumer.HealthCheck(context.Background())
	if !h.Healthy || !h.Degraded {
		t.Errorf("HealthCheck() while relay down = %+v, want degraded", h)
	}
	if !consumer.IsRunning() {
		t.Error("consumer exited on relay loss")
	}
}
