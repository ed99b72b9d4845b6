// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/metrics"
)

// FallbackFeedback is stored when no feedback could be generated.
const FallbackFeedback = "Coaching feedback is not available for this report."

// FeedbackGenerator turns report facts into coaching text.
type FeedbackGenerator interface {
	Feedback(ctx context.Context, facts Facts) (string, error)
}

// Thresholds for RuleFeedback.
const (
	drowsyConcern     = 0.15
	distractedConcern = 0.20
	shortSession      = 10 * time.Minute
)

// RuleFeedback produces coaching text from fixed rules without any network call.
type RuleFeedback struct{}

// Feedback implements FeedbackGenerator.
func (RuleFeedback) Feedback(_ context.Context, f Facts) (string, error) {
	if f.Sessions == 0 {
		return "Record a study session to receive feedback.", nil
	}

	var tips []string
	if f.DrowsyRatio >= drowsyConcern {
		tips = append(tips, fmt.Sprintf(
			"Your eyes were closing in %.0f%% of measurements. Try shorter sessions with a break every 25 minutes, and study when you are rested.",
			percent(f.DrowsyRatio)))
	}
	if f.DistractedRatio >= distractedConcern {
		tips = append(tips, fmt.Sprintf(
			"You looked away from the screen in %.0f%% of measurements. Move your phone out of reach and close unrelated tabs.",
			percent(f.DistractedRatio)))
	}
	if avg := f.Duration / time.Duration(f.Sessions); avg < shortSession {
		tips = append(tips, fmt.Sprintf(
			"Sessions averaged %s. Building up to at least %s helps you settle into focused work.",
			avg.Round(time.Second), shortSession))
	}
	if len(tips) == 0 {
		return "Focus was steady across your sessions. Keep the same routine.", nil
	}
	return strings.Join(tips, " "), nil
}

// HTTPFeedbackConfig configures HTTPFeedback.
type HTTPFeedbackConfig struct {
	// URL is the base URL of the text-generation server.
	URL string
	// Model is the model name sent with each request.
	Model string
	// Timeout bounds one request.
	Timeout time.Duration
	// FailureThreshold is the consecutive failures that open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open.
	OpenTimeout time.Duration
}

// DefaultHTTPFeedbackConfig returns defaults for a local generation server.
func DefaultHTTPFeedbackConfig() HTTPFeedbackConfig {
	return HTTPFeedbackConfig{
		URL:              "http://localhost:11434",
		Model:            "exaone3.5:2.4b",
		Timeout:          60 * time.Second,
		FailureThreshold: 3,
		OpenTimeout:      2 * time.Minute,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// HTTPFeedback asks an external text-generation endpoint for coaching text.
// Calls go through a circuit breaker so a dead endpoint fails fast.
type HTTPFeedback struct {
	cfg    HTTPFeedbackConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[string]
}

// NewHTTPFeedback creates an HTTPFeedback. client may be nil.
func NewHTTPFeedback(cfg HTTPFeedbackConfig, client *http.Client) *HTTPFeedback {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	name := "feedback-http"
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			state := 0
			switch to {
			case gobreaker.StateHalfOpen:
				state = 1
			case gobreaker.StateOpen:
				state = 2
			}
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String(), state)
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
	return &HTTPFeedback{cfg: cfg, client: client, cb: cb}
}

// Feedback implements FeedbackGenerator.
func (h *HTTPFeedback) Feedback(ctx context.Context, f Facts) (string, error) {
	text, err := h.cb.Execute(func() (string, error) {
		return h.generate(ctx, Prompt(f))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("feedback endpoint unavailable: %w", err)
		}
		return "", err
	}
	return text, nil
}

// State returns the breaker state as a string.
func (h *HTTPFeedback) State() string {
	return h.cb.State().String()
}

func (h *HTTPFeedback) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: h.cfg.Model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal feedback request: %w", err)
	}
	url := strings.TrimRight(h.cfg.URL, "/") + "/api/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create feedback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("feedback request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: %d: %s", ErrFeedbackStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode feedback response: %w", err)
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", ErrEmptyFeedback
	}
	return text, nil
}

// Prompt is the instruction sent to a text-generation endpoint.
func Prompt(f Facts) string {
	return "You are a study coach. Based only on the following facts about a student's " +
		"study sessions, give two or three short, encouraging, concrete suggestions. " +
		"Do not invent numbers.\n\nFacts: " + f.Sentence
}
