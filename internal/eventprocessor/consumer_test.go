// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/attentive/internal/store"
)

func testConsumerConfig() ConsumerConfig {
	cfg := DefaultConsumerConfig()
	cfg.RetryInterval = 10 * time.Millisecond
	cfg.PingTimeout = time.Second
	return cfg
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type consumerHarness struct {
	relay    *ChannelRelay
	pub      *Publisher
	store    *store.MemoryStore
	consumer *PersistenceConsumer
	cancel   context.CancelFunc
	done     chan error
}

func startHarness(t *testing.T, dialer RelayDialer, relay *ChannelRelay, st *store.MemoryStore) *consumerHarness {
	t.Helper()
	if relay == nil {
		relay = NewChannelRelay(64, nil)
	}
	if dialer == nil {
		dialer = relay
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	consumer, err := NewPersistenceConsumer(dialer, st, testConsumerConfig())
	if err != nil {
		t.Fatalf("NewPersistenceConsumer() error = %v", err)
	}
	pub, err := NewPublisher(relay.Publisher())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &consumerHarness{relay: relay, pub: pub, store: st, consumer: consumer, cancel: cancel, done: make(chan error, 1)}
	go func() { h.done <- consumer.Run(ctx) }()

	select {
	case <-consumer.Ready():
	case err := <-h.done:
		cancel()
		t.Fatalf("Run() returned before ready: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("consumer not ready")
	}
	t.Cleanup(func() {
		h.stop(t)
		_ = relay.Close()
	})
	return h
}

func (h *consumerHarness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err, ok := <-h.done:
		if ok && err != nil {
			t.Errorf("Run() error = %v", err)
		}
		close(h.done)
	case <-time.After(5 * time.Second):
		t.Error("consumer did not stop")
	}
}

func (h *consumerHarness) publishData(t *testing.T, session string, seq int) {
	t.Helper()
	raw := fmt.Sprintf(`{"sessionId":%q,"userId":"u1","eventType":"data","timestamp":%d,"payload":{"ear":0.25,"mar":0.01,"yaw":0.05,"sequence":%d}}`,
		session, 1700000000+seq, seq)
	if err := h.pub.Publish(context.Background(), DefaultChannel, []byte(raw)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func (h *consumerHarness) publishRaw(t *testing.T, raw string) {
	t.Helper()
	if err := h.pub.Publish(context.Background(), DefaultChannel, []byte(raw)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func (h *consumerHarness) publishEnd(t *testing.T, session string) {
	t.Helper()
	if err := h.pub.PublishEvent(context.Background(), DefaultChannel, NewSessionEndEvent(session, "u1", time.Now())); err != nil {
		t.Fatalf("PublishEvent() error = %v", err)
	}
}

func TestNewPersistenceConsumer_Validation(t *testing.T) {
	t.Parallel()
	relay := NewChannelRelay(1, nil)
	defer relay.Close()

	if _, err := NewPersistenceConsumer(nil, store.NewMemoryStore(), DefaultConsumerConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil dialer error = %v", err)
	}
	if _, err := NewPersistenceConsumer(relay, nil, DefaultConsumerConfig()); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil store error = %v", err)
	}
	cfg := DefaultConsumerConfig()
	cfg.Channel = ""
	if _, err := NewPersistenceConsumer(relay, store.NewMemoryStore(), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("empty channel error = %v", err)
	}
}

func TestPersistenceConsumer_StoresDataSkipsSessionEnd(t *testing.T) {
	t.Parallel()
	h := startHarness(t, nil, nil, nil)

	for i := 0; i < 3; i++ {
		h.publishData(t, "s1", i)
	}
	h.publishEnd(t, "s1")

	waitFor(t, 2*time.Second, func() bool { return h.consumer.Stats().Checkpoints == 1 }, "checkpoint")

	docs := h.store.Documents()
	if len(docs) != 3 {
		t.Fatalf("stored %d documents, want 3", len(docs))
	}
	for _, d := range docs {
		if d["eventType"] != "data" {
			t.Errorf("stored non-data document: %v", d)
		}
	}
	cps := h.consumer.Checkpoints()
	if len(cps) != 1 || cps[0].SessionID != "s1" || cps[0].UserID != "u1" {
		t.Errorf("Checkpoints() = %+v", cps)
	}
	if cps[0].EventTime.IsZero() {
		t.Error("checkpoint EventTime not set")
	}
}

func TestPersistenceConsumer_PreservesOrderAndDuplicates(t *testing.T) {
	t.Parallel()
	h := startHarness(t, nil, nil, nil)

	const n = 200
	for i := 0; i < n; i++ {
		h.publishData(t, "ordered", i)
	}
	h.publishData(t, "ordered", n-1) // duplicate
	h.publishEnd(t, "ordered")

	waitFor(t, 5*time.Second, func() bool { return h.consumer.Stats().Checkpoints == 1 }, "checkpoint")

	docs := h.store.Documents()
	if len(docs) != n+1 {
		t.Fatalf("stored %d documents, want %d", len(docs), n+1)
	}
	for i := 0; i < n; i++ {
		payload := docs[i]["payload"].(map[string]any)
		if payload["sequence"] != int64(i) {
			t.Fatalf("docs[%d].sequence = %v, want %d", i, payload["sequence"], i)
		}
	}
	last := docs[n]["payload"].(map[string]any)
	if last["sequence"] != int64(n-1) {
		t.Errorf("duplicate not stored as its own document: %v", last)
	}
}

func TestPersistenceConsumer_KeepsExactNumbers(t *testing.T) {
	t.Parallel()
	h := startHarness(t, nil, nil, nil)

	raw := `{"sessionId":"exact","userId":"u1","eventType":"data","timestamp":1700000000,` +
		`"payload":{"sequence":9007199254740993,"frameId":12345678901234567,"ear":0.25}}`
	if err := h.pub.Publish(context.Background(), DefaultChannel, []byte(raw)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return h.store.Len() == 1 }, "stored event")

	doc := h.store.Documents()[0]
	payload := doc["payload"].(map[string]any)
	tests := []struct {
		key  string
		got  any
		want any
	}{
		{"sequence", payload["sequence"], int64(9007199254740993)},
		{"frameId", payload["frameId"], int64(12345678901234567)},
		{"ear", payload["ear"], 0.25},
		{"timestamp", doc["timestamp"], int64(1700000000)},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v (%T), want %v (%T)", tt.key, tt.got, tt.got, tt.want, tt.want)
		}
	}
}

func TestPersistenceConsumer_DropsBadMessagesAndContinues(t *testing.T) {
	t.Parallel()
	h := startHarness(t, nil, nil, nil)

	h.publishRaw(t, `{"sessionId":`)
	h.publishRaw(t, `"just a string"`)
	h.publishRaw(t, `{"sessionId":"s1","eventType":"heartbeat"}`)
	h.publishRaw(t, `{"sessionId":"s1"}`)
	h.publishRaw(t, ``)
	h.publishData(t, "s1", 1)
	h.publishEnd(t, "s1")

	waitFor(t, 2*time.Second, func() bool { return h.consumer.Stats().Checkpoints == 1 }, "checkpoint")

	stats := h.consumer.Stats()
	if stats.MalformedDropped != 2 {
		t.Errorf("MalformedDropped = %d, want 2", stats.MalformedDropped)
	}
	if stats.UnrecognizedDropped != 2 {
		t.Errorf("UnrecognizedDropped = %d, want 2", stats.UnrecognizedDropped)
	}
	if stats.EventsStored != 1 || h.store.Len() != 1 {
		t.Errorf("EventsStored = %d, store len = %d, want 1", stats.EventsStored, h.store.Len())
	}
	if stats.MessagesReceived != 7 {
		t.Errorf("MessagesReceived = %d, want 7", stats.MessagesReceived)
	}
}

func TestPersistenceConsumer_StoreWriteFailureIsPerMessage(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore()
	st.InsertHook = func(doc map[string]any) error {
		if doc["sessionId"] == "broken" {
			return errors.New("disk full")
		}
		return nil
	}
	h := startHarness(t, nil, nil, st)

	h.publishData(t, "broken", 1)
	h.publishData(t, "fine", 2)
	h.publishEnd(t, "fine")

	waitFor(t, 2*time.Second, func() bool { return h.consumer.Stats().Checkpoints == 1 }, "checkpoint")

	stats := h.consumer.Stats()
	if stats.StoreFailures != 1 || stats.EventsStored != 1 {
		t.Errorf("StoreFailures = %d, EventsStored = %d; want 1, 1", stats.StoreFailures, stats.EventsStored)
	}
	if !h.consumer.IsRunning() {
		t.Error("consumer stopped after a write failure")
	}
}

func TestPersistenceConsumer_CheckpointHandler(t *testing.T) {
	t.Parallel()
	relay := NewChannelRelay(16, nil)
	st := store.NewMemoryStore()
	consumer, err := NewPersistenceConsumer(relay, st, testConsumerConfig())
	if err != nil {
		t.Fatal(err)
	}
	seen := make(chan Checkpoint, 1)
	consumer.SetCheckpointHandler(func(cp Checkpoint) {
		// Everything published before the sentinel has been processed.
		if st.Len() != 2 {
			t.Errorf("store len at checkpoint = %d, want 2", st.Len())
		}
		seen <- cp
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()
	<-consumer.Ready()

	pub, _ := NewPublisher(relay.Publisher())
	for i := 0; i < 2; i++ {
		ev := NewDataEvent("s9", "u9", time.Now(), map[string]any{"sequence": i})
		if err := pub.PublishEvent(ctx, DefaultChannel, ev); err != nil {
			t.Fatal(err)
		}
	}
	if err := pub.PublishEvent(ctx, DefaultChannel, NewSessionEndEvent("s9", "u9", time.Now())); err != nil {
		t.Fatal(err)
	}

	select {
	case cp := <-seen:
		if cp.SessionID != "s9" {
			t.Errorf("checkpoint session = %s", cp.SessionID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("checkpoint handler not called")
	}
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestPersistenceConsumer_CheckpointRingBounded(t *testing.T) {
	t.Parallel()
	relay := NewChannelRelay(16, nil)
	defer relay.Close()
	cfg := testConsumerConfig()
	cfg.MaxCheckpoints = 3
	consumer, err := NewPersistenceConsumer(relay, store.NewMemoryStore(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		consumer.recordCheckpoint(SessionEndEvent{SessionID: fmt.Sprintf("s%d", i)})
	}
	cps := consumer.Checkpoints()
	if len(cps) != 3 {
		t.Fatalf("len(Checkpoints()) = %d, want 3", len(cps))
	}
	if cps[0].SessionID != "s2" || cps[2].SessionID != "s4" {
		t.Errorf("Checkpoints() = %+v", cps)
	}
	if cps[0].Lag != 0 || !cps[0].EventTime.IsZero() {
		t.Error("checkpoint without timestamp should have zero lag")
	}
}

// flakyDialer fails the first n dials.
type flakyDialer struct {
	inner    RelayDialer
	failures int32
	attempts atomic.Int32
}

func (d *flakyDialer) Dial(ctx context.Context) (RelayConn, error) {
	if d.attempts.Add(1) <= d.failures {
		return nil, fmt.Errorf("%w: connection refused", ErrRelayUnavailable)
	}
	return d.inner.Dial(ctx)
}

func TestPersistenceConsumer_RetriesRelayUntilAvailable(t *testing.T) {
	t.Parallel()
	relay := NewChannelRelay(16, nil)
	dialer := &flakyDialer{inner: relay, failures: 3}
	st := store.NewMemoryStore()
	h := startHarness(t, dialer, relay, st)

	if got := dialer.attempts.Load(); got != 4 {
		t.Errorf("dial attempts = %d, want 4", got)
	}
	if !st.Connected() {
		t.Error("store should connect after relay")
	}
	h.publishData(t, "s1", 1)
	waitFor(t, time.Second, func() bool { return st.Len() == 1 }, "stored event")
}

func TestPersistenceConsumer_RelayRetryDoesNotTouchStore(t *testing.T) {
	t.Parallel()
	dialer := &flakyDialer{inner: NewChannelRelay(1, nil), failures: 1 << 30}
	st := store.NewMemoryStore()
	consumer, err := NewPersistenceConsumer(dialer, st, testConsumerConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := consumer.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancellation", err)
	}
	if dialer.attempts.Load() < 2 {
		t.Errorf("dial attempts = %d, want retries", dialer.attempts.Load())
	}
	if st.Connected() {
		t.Error("store connected while relay was down")
	}
}

func TestPersistenceConsumer_StoreUnavailableIsFatal(t *testing.T) {
	t.Parallel()
	relay := NewChannelRelay(1, nil)
	defer relay.Close()
	st := store.NewMemoryStore()
	st.ConnectErr = errors.New("authentication failed")

	consumer, err := NewPersistenceConsumer(relay, st, testConsumerConfig())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = consumer.Run(ctx)
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("Run() error = %v, want ErrStoreUnavailable", err)
	}
	if Classify(err) != CategoryFatal {
		t.Errorf("Classify() = %s, want fatal", Classify(err))
	}
	if consumer.IsRunning() {
		t.Error("IsRunning() = true after fatal error")
	}
	if consumer.Stats().RelayState != StateDisconnected {
		t.Error("relay should be released after fatal store error")
	}
}

// losableDialer hands out connections whose loss the test controls.
type losableDialer struct {
	relay *ChannelRelay
	mu    sync.Mutex
	conns []*losableConn
}

type losableConn struct {
	RelayConn
	closed chan struct{}
	once   sync.Once
}

func (c *losableConn) Closed() <-chan struct{} { return c.closed }
func (c *losableConn) lose()                   { c.once.Do(func() { close(c.closed) }) }

func (d *losableDialer) Dial(ctx context.Context) (RelayConn, error) {
	inner, err := d.relay.Dial(ctx)
	if err != nil {
		return nil, err
	}
	c := &losableConn{RelayConn: inner, closed: make(chan struct{})}
	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()
	return c, nil
}

func (d *losableDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *losableDialer) loseLatest() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.conns[len(d.conns)-1].lose()
}

func TestPersistenceConsumer_ReconnectsAfterRelayLoss(t *testing.T) {
	t.Parallel()
	relay := NewChannelRelay(16, nil)
	dialer := &losableDialer{relay: relay}
	st := store.NewMemoryStore()
	h := startHarness(t, dialer, relay, st)

	h.publishData(t, "before", 1)
	waitFor(t, time.Second, func() bool { return st.Len() == 1 }, "first event")

	dialer.loseLatest()
	waitFor(t, 2*time.Second, func() bool {
		return dialer.count() == 2 && h.consumer.Stats().RelayState == StateConnected
	}, "reconnect")

	if !st.Connected() {
		t.Error("store handle should survive relay loss")
	}

	// The new subscription may register slightly after the state flips.
	waitFor(t, 2*time.Second, func() bool {
		h.publishData(t, "after", 2)
		return st.Len() >= 2
	}, "event after reconnect")

	if got := h.consumer.Stats().RelayConnects; got != 2 {
		t.Errorf("RelayConnects = %d, want 2", got)
	}
}

func TestPersistenceConsumer_ShutdownClosesStore(t *testing.T) {
	t.Parallel()
	st := store.NewMemoryStore()
	h := startHarness(t, nil, nil, st)
	if !st.Connected() {
		t.Fatal("store not connected")
	}
	h.cancel()
	waitFor(t, 2*time.Second, func() bool { return !h.consumer.IsRunning() }, "shutdown")
	if st.Connected() {
		t.Error("store still connected after shutdown")
	}
	if h.consumer.Stats().StoreState != StateDisconnected {
		t.Error("store state not DISCONNECTED after shutdown")
	}
}

func TestPersistenceConsumer_RunTwice(t *testing.T) {
	t.Parallel()
	h := startHarness(t, nil, nil, nil)
	if err := h.consumer.Run(context.Background()); !errors.Is(err, ErrConsumerRunning) {
		t.Errorf("second Run() error = %v, want ErrConsumerRunning", err)
	}
}

func TestPersistenceConsumer_StressSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping 10k event run in short mode")
	}
	t.Parallel()
	h := startHarness(t, nil, nil, nil)

	var checkpoints atomic.Int32
	h.consumer.SetCheckpointHandler(func(Checkpoint) { checkpoints.Add(1) })

	const total = 10000
	for i := 0; i < total; i++ {
		h.publishData(t, "stress-test-session", i)
	}
	h.publishEnd(t, "stress-test-session")

	waitFor(t, 30*time.Second, func() bool { return checkpoints.Load() == 1 }, "stress checkpoint")

	if got := h.store.Len(); got != total {
		t.Fatalf("stored %d documents, want %d", got, total)
	}
	docs := h.store.Documents()
	for i, d := range docs {
		if d["payload"].(map[string]any)["sequence"] != int64(i) {
			t.Fatalf("document %d out of order", i)
		}
	}
	if checkpoints.Load() != 1 {
		t.Errorf("checkpoints = %d, want exactly 1", checkpoints.Load())
	}
}
