// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package eventprocessor

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/attentive/internal/store"
)

// HealthStatusType represents the overall health status.
type HealthStatusType string

const (
	HealthStatusHealthy   HealthStatusType = "healthy"
	HealthStatusDegraded  HealthStatusType = "degraded"
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	Healthy   bool           `json:"healthy"`
	Degraded  bool           `json:"degraded,omitempty"`
	Name      string         `json:"name"`
	Message   string         `json:"message,omitempty"`
	Error     string         `json:"error,omitempty"`
	LastCheck time.Time      `json:"last_check"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthCheckable is implemented by components that support health checking.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// HealthCheckFunc adapts a function to HealthCheckable.
type HealthCheckFunc func(ctx context.Context) ComponentHealth

// HealthCheck implements HealthCheckable.
func (f HealthCheckFunc) HealthCheck(ctx context.Context) ComponentHealth { return f(ctx) }

// OverallHealth is the aggregated health of all registered components.
type OverallHealth struct {
	Healthy    bool                       `json:"healthy"`
	Status     HealthStatusType           `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs health checks for multiple components concurrently.
type HealthChecker struct {
	timeout    time.Duration
	mu         sync.RWMutex
	components map[string]HealthCheckable
}

// NewHealthChecker creates a checker bounding each check by timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		timeout:    timeout,
		components: make(map[string]HealthCheckable),
	}
}

// RegisterComponent registers a component for health checking.
func (h *HealthChecker) RegisterComponent(name string, component HealthCheckable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component
}

// CheckAll performs health checks on all registered components.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	components := make(map[string]HealthCheckable, len(h.components))
	for name, comp := range h.components {
		components[name] = comp
	}
	h.mu.RUnlock()

	overall := OverallHealth{
		Healthy:    true,
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(components)),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, comp := range components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := h.check(ctx, name, comp)

			mu.Lock()
			defer mu.Unlock()
			overall.Components[name] = result
			if !result.Healthy {
				overall.Healthy = false
				overall.Status = HealthStatusUnhealthy
			} else if result.Degraded && overall.Status == HealthStatusHealthy {
				overall.Status = HealthStatusDegraded
			}
		}()
	}
	wg.Wait()
	return overall
}

func (h *HealthChecker) check(ctx context.Context, name string, comp HealthCheckable) ComponentHealth {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	resultCh := make(chan ComponentHealth, 1)
	go func() {
		resultCh <- comp.HealthCheck(checkCtx)
	}()

	select {
	case result := <-resultCh:
		result.Name = name
		result.LastCheck = time.Now()
		return result
	case <-checkCtx.Done():
		return ComponentHealth{
			Name:      name,
			Healthy:   false,
			Error:     "health check timeout",
			LastCheck: time.Now(),
		}
	}
}

// HealthCheck implements HealthCheckable for PersistenceConsumer.
//
// A consumer waiting for the relay is degraded, not unhealthy: it will
// reconnect on its own. A store that stops answering pings is unhealthy.
func (c *PersistenceConsumer) HealthCheck(ctx context.Context) ComponentHealth {
	stats := c.Stats()
	details := map[string]any{
		"messages_received":    stats.MessagesReceived,
		"events_stored":        stats.EventsStored,
		"checkpoints":          stats.Checkpoints,
		"malformed_dropped":    stats.MalformedDropped,
		"unrecognized_dropped": stats.UnrecognizedDropped,
		"store_failures":       stats.StoreFailures,
		"relay_state":          stats.RelayState.String(),
		"store_state":          stats.StoreState.String(),
	}
	if !stats.LastMessageTime.IsZero() {
		details["last_message_time"] = stats.LastMessageTime.Format(time.RFC3339)
	}

	if !c.running.Load() {
		return ComponentHealth{Healthy: false, Error: "consumer is not running", Details: details}
	}

	if stats.StoreState == StateConnected {
		if p, ok := c.store.(store.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return ComponentHealth{Healthy: false, Error: "store ping failed: " + err.Error(), Details: details}
			}
		}
	}

	if stats.RelayState != StateConnected {
		return ComponentHealth{Healthy: true, Degraded: true, Message: "waiting for relay", Details: details}
	}

	if stats.MessagesReceived > 100 {
		failureRate := float64(stats.StoreFailures) / float64(stats.MessagesReceived)
		if failureRate > 0.1 {
			return ComponentHealth{Healthy: true, Degraded: true, Message: "high store failure rate", Details: details}
		}
	}

	return ComponentHealth{Healthy: true, Message: "consumer is running", Details: details}
}
