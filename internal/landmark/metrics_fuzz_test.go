// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

package landmark

import (
	"math"
	"testing"

	"github.com/tomtom215/attentive/internal/models"
)

// FuzzCompute feeds arbitrary point clouds through every metric. Nothing may
// panic, and finite input must produce finite, non-negative ratios.
func FuzzCompute(f *testing.F) {
	f.Add(uint32(362), 0.1, 0.2, uint32(1), 0.5, 0.5, uint32(454), 0.9, 0.5)
	f.Add(uint32(0), 0.0, 0.0, uint32(0), 0.0, 0.0, uint32(0), 0.0, 0.0)
	f.Add(uint32(234), -1.0, 1e300, uint32(1), 1e-300, 0.0, uint32(454), 2.0, -3.0)

	f.Fuzz(func(t *testing.T, i1 uint32, x1, y1 float64, i2 uint32, x2, y2 float64, i3 uint32, x3, y3 float64) {
		for _, v := range []float64{x1, y1, x2, y2, x3, y3} {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > 1e6 {
				return
			}
		}
		points := []models.LandmarkPoint{{Index: i1, X: x1, Y: y1}, {Index: i2, X: x2, Y: y2}, {Index: i3, X: x3, Y: y3}}

		m := Compute(points)
		for name, v := range map[string]float64{"earLeft": m.EarLeft, "earRight": m.EarRight, "mar": m.MAR} {
			if math.IsNaN(v) || v < 0 {
				t.Errorf("%s = %v for %+v", name, v, points)
			}
		}
		if math.IsNaN(m.Yaw) || m.Yaw < -1 || m.Yaw > 1 {
			t.Errorf("yaw = %v for %+v", m.Yaw, points)
		}
	})
}
