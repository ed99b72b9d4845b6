// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package loadgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/attentive/internal/logging"
	"github.com/tomtom215/attentive/internal/models"
)

// landmarkIndices are the points the metric computer reads, plus a few
// neighbours a real face mesh would send alongside them.
var landmarkIndices = [...]uint32{
	1, 6, 10, 13, 14, 33, 61, 81, 133, 144, 152, 153, 158, 160, 178,
	234, 263, 291, 311, 362, 373, 380, 385, 387, 402, 454,
}

// WSLoadConfig configures a websocket load run.
type WSLoadConfig struct {
	URL          string
	VirtualUsers int
	Duration     time.Duration
	// Interval between frames per connection. 33ms is about 30 fps.
	Interval    time.Duration
	DialTimeout time.Duration
}

// DefaultWSLoadConfig returns 50 users for 30 seconds at 30 fps.
func DefaultWSLoadConfig() WSLoadConfig {
	return WSLoadConfig{
		URL:          "ws://localhost:9002/",
		VirtualUsers: 50,
		Duration:     30 * time.Second,
		Interval:     33 * time.Millisecond,
		DialTimeout:  10 * time.Second,
	}
}

// WSLoadResult summarizes a run.
type WSLoadResult struct {
	Connected     int           `json:"connected"`
	ConnectFailed int           `json:"connectFailed"`
	Sent          int64         `json:"sent"`
	Failed        int64         `json:"failed"`
	Duration      time.Duration `json:"duration"`
}

// WSLoadClient runs virtual users against the ingestion endpoint.
type WSLoadClient struct {
	cfg    WSLoadConfig
	dialer *websocket.Dialer
}

// NewWSLoadClient validates cfg and creates a WSLoadClient.
func NewWSLoadClient(cfg WSLoadConfig) (*WSLoadClient, error) {
	if cfg.URL == "" {
		return nil, errors.New("url is required")
	}
	if cfg.VirtualUsers <= 0 || cfg.Duration <= 0 || cfg.Interval <= 0 {
		return nil, fmt.Errorf("virtual users, duration and interval must be positive: %+v", cfg)
	}
	return &WSLoadClient{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
	}, nil
}

// Run starts all virtual users and waits for Duration or ctx to end. It
// returns an error only if no user could connect.
func (c *WSLoadClient) Run(ctx context.Context) (WSLoadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Duration)
	defer cancel()

	var (
		wg            sync.WaitGroup
		connected     atomic.Int64
		connectFailed atomic.Int64
		sent          atomic.Int64
		failed        atomic.Int64
	)
	start := time.Now()
	for vu := 0; vu < c.cfg.VirtualUsers; vu++ {
		wg.Add(1)
		go func(vu int) {
			defer wg.Done()
			n, f, err := c.runUser(ctx, vu)
			if err != nil {
				connectFailed.Add(1)
				logging.Debug().Err(err).Int("vu", vu).Msg("Virtual user failed to connect")
				return
			}
			connected.Add(1)
			sent.Add(n)
			failed.Add(f)
		}(vu)
	}
	wg.Wait()

	res := WSLoadResult{
		Connected:     int(connected.Load()),
		ConnectFailed: int(connectFailed.Load()),
		Sent:          sent.Load(),
		Failed:        failed.Load(),
		Duration:      time.Since(start),
	}
	logging.Info().
		Int("connected", res.Connected).
		Int("connect_failed", res.ConnectFailed).
		Int64("sent", res.Sent).
		Int64("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Websocket load run completed")

	if res.Connected == 0 {
		return res, fmt.Errorf("no virtual user connected to %s", c.cfg.URL)
	}
	return res, nil
}

// runUser streams frames until ctx ends or a write fails.
func (c *WSLoadClient) runUser(ctx context.Context, vu int) (sent, failed int64, err error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = conn.Close() }()

	frame := models.Frame{
		SessionID: fmt.Sprintf("load-session-%d", vu),
		UserID:    fmt.Sprintf("load-user-%d", vu),
		EventType: models.EventTypeData,
		Payload:   models.FramePayload{Landmarks: RandomLandmarks()},
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "load run finished"), deadline)
			return sent, failed, nil
		case now := <-ticker.C:
			frame.Timestamp = models.EpochSeconds(now)
			data, _ := json.Marshal(frame)
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				failed++
				return sent, failed, nil
			}
			sent++
		}
	}
}

// RandomLandmarks returns one point per landmark index with uniform
// coordinates in [0, 1).
func RandomLandmarks() []models.LandmarkPoint {
	pts := make([]models.LandmarkPoint, len(landmarkIndices))
	for i, idx := range landmarkIndices {
		pts[i] = models.LandmarkPoint{Index: idx, X: rand.Float64(), Y: rand.Float64()}
	}
	return pts
}
