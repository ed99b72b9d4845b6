// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock is advanced by hand so expiry tests never sleep.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLRU[V any](capacity int, ttl time.Duration) (*LRU[V], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewLRU[V](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestNewLRU_Defaults(t *testing.T) {
	t.Parallel()
	c := NewLRU[int](0, 0)
	if c.capacity != DefaultCapacity || c.ttl != DefaultTTL {
		t.Errorf("capacity=%d ttl=%v, want defaults", c.capacity, c.ttl)
	}
}

func TestLRU_Eviction(t *testing.T) {
	t.Parallel()
	c, _ := newTestLRU[string](3, time.Minute)

	c.Add("a", "A")
	c.Add("b", "B")
	c.Add("c", "C")
	c.Get("a")
	c.Add("d", "D")

	if _, ok := c.Get("b"); ok {
		t.Error("b should be evicted as least recently used")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s missing", k)
		}
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestLRU_Expiry(t *testing.T) {
	t.Parallel()
	c, clock := newTestLRU[[]byte](10, time.Minute)
	c.Add("r1", []byte("doc"))

	if v, ok := c.Get("r1"); !ok || string(v) != "doc" {
		t.Fatalf("Get() = %q, %v", v, ok)
	}
	clock.Advance(time.Minute + time.Nanosecond)
	if c.Contains("r1") {
		t.Error("Contains() true after expiry")
	}
	if v, ok := c.Get("r1"); ok || v != nil {
		t.Errorf("Get() after expiry = %q, %v", v, ok)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed, Len() = %d", c.Len())
	}
}

func TestLRU_AddResetsExpiry(t *testing.T) {
	t.Parallel()
	c, clock := newTestLRU[int](10, time.Minute)
	c.Add("k", 1)
	clock.Advance(50 * time.Second)
	c.Add("k", 2)
	clock.Advance(50 * time.Second)

	if v, ok := c.Get("k"); !ok || v != 2 {
		t.Errorf("Get() = %d, %v; want 2, true", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRU_RemoveAndClear(t *testing.T) {
	t.Parallel()
	c, _ := newTestLRU[int](10, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)

	if !c.Remove("a") || c.Remove("a") {
		t.Error("Remove() should succeed once")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b missing after removing a")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	c.Add("c", 3)
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	t.Parallel()
	c, clock := newTestLRU[int](10, time.Minute)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)
	clock.Advance(2 * time.Minute)
	c.Add("d", 4)

	if removed := c.CleanupExpired(); removed != 3 {
		t.Errorf("CleanupExpired() = %d, want 3", removed)
	}
	if c.Len() != 1 || !c.Contains("d") {
		t.Errorf("Len() = %d, want only d", c.Len())
	}
}

func TestLRU_Stats(t *testing.T) {
	t.Parallel()
	c, _ := newTestLRU[int](10, time.Minute)
	c.Add("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if rate := s.HitRate(); rate < 66 || rate > 67 {
		t.Errorf("HitRate() = %f", rate)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("HitRate() of empty stats should be 0")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()
	c := NewLRU[int](50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", (id+j)%80)
				c.Add(key, j)
				c.Get(key)
				c.Contains(key)
				if j%50 == 0 {
					c.CleanupExpired()
				}
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}

func BenchmarkLRU_Get(b *testing.B) {
	c := NewLRU[[]byte](1000, time.Minute)
	for i := 0; i < 1000; i++ {
		c.Add(fmt.Sprintf("k%d", i), []byte("x"))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(fmt.Sprintf("k%d", i%1000))
	}
}
