// Attentive - Real-time Attention Metrics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/attentive

// Package landmark computes attention metrics from facial landmarks.
//
// All functions are pure. Upstream face-mesh detectors drop points from
// individual frames, so every function tolerates partial input and returns a
// neutral 0 instead of an error when the points it needs are missing or the
// geometry degenerates (zero horizontal span). Callers cannot tell a dropped
// point from a genuinely neutral reading; that loss of accuracy during
// dropout is accepted in exchange for never stalling the stream.
//
// Index sets follow the 468-point face mesh numbering:
//
//	left eye   362 385 387 263 373 380   (outer, upper1, upper2, inner, lower1, lower2)
//	right eye   33 160 158 133 153 144
//	mouth       61 291  13  81 178  14 311 402
//	yaw          1 (nose tip), 234 (left cheek), 454 (right cheek)
package landmark

import (
	"math"

	"github.com/tomtom215/attentive/internal/models"
)

// Landmark indices used by Compute.
var (
	LeftEyeIndices  = []uint32{362, 385, 387, 263, 373, 380}
	RightEyeIndices = []uint32{33, 160, 158, 133, 153, 144}
	MouthIndices    = []uint32{61, 291, 13, 81, 178, 14, 311, 402}
)

const (
	NoseTipIndex    uint32 = 1
	LeftCheekIndex  uint32 = 234
	RightCheekIndex uint32 = 454
)

const (
	eyePointCount   = 6
	mouthPointCount = 8
)

// Index maps a landmark index to its point for O(1) lookup.
// It lives only for the processing of one frame.
type Index map[uint32]models.LandmarkPoint

// NewIndex builds an Index from a frame's landmarks.
// When an index repeats, the last occurrence wins.
func NewIndex(points []models.LandmarkPoint) Index {
	idx := make(Index, len(points))
	for _, p := range points {
		idx[p.Index] = p
	}
	return idx
}

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 models.LandmarkPoint) float64 {
	return math.Hypot(p1.X-p2.X, p1.Y-p2.Y)
}

// EyeAspectRatio computes (|p1-p5| + |p2-p4|) / (2|p0-p3|) over the six eye
// points in the order outer corner, two upper lid, inner corner, two lower lid.
// Returns 0 for fewer than six points or a zero horizontal span.
func EyeAspectRatio(points []models.LandmarkPoint) float64 {
	if len(points) < eyePointCount {
		return 0
	}
	hor := Distance(points[0], points[3])
	if hor == 0 {
		return 0
	}
	ver := Distance(points[1], points[5]) + Distance(points[2], points[4])
	return ver / (2 * hor)
}

// MouthAspectRatio computes (|p2-p5| + |p3-p6| + |p4-p7|) / (3|p0-p1|) over the
// eight mouth points, corners first. Returns 0 for fewer than eight points or a
// zero horizontal span.
func MouthAspectRatio(points []models.LandmarkPoint) float64 {
	if len(points) < mouthPointCount {
		return 0
	}
	hor := Distance(points[0], points[1])
	if hor == 0 {
		return 0
	}
	ver := Distance(points[2], points[5]) + Distance(points[3], points[6]) + Distance(points[4], points[7])
	return ver / (3 * hor)
}

// HeadYaw estimates horizontal head rotation from the nose tip's position
// between the cheeks. Positive values mean the head is turned toward the
// camera's right. Returns 0 if any of the three points is absent or both
// cheek distances are zero.
func HeadYaw(idx Index) float64 {
	nose, ok := idx[NoseTipIndex]
	if !ok {
		return 0
	}
	left, ok := idx[LeftCheekIndex]
	if !ok {
		return 0
	}
	right, ok := idx[RightCheekIndex]
	if !ok {
		return 0
	}

	distLeft := math.Abs(nose.X - left.X)
	distRight := math.Abs(right.X - nose.X)
	sum := distLeft + distRight
	if sum == 0 {
		return 0
	}
	return (distRight - distLeft) / sum
}

// SelectByIndices projects indices onto the points present in idx, keeping
// the order of indices and silently skipping absent ones.
func SelectByIndices(idx Index, indices []uint32) []models.LandmarkPoint {
	out := make([]models.LandmarkPoint, 0, len(indices))
	for _, i := range indices {
		if p, ok := idx[i]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Compute derives all attention metrics for one frame's landmarks.
func Compute(points []models.LandmarkPoint) models.AttentionMetrics {
	idx := NewIndex(points)
	return ComputeIndex(idx)
}

// ComputeIndex is Compute over a prebuilt Index.
func ComputeIndex(idx Index) models.AttentionMetrics {
	return models.AttentionMetrics{
		EarLeft:  EyeAspectRatio(SelectByIndices(idx, LeftEyeIndices)),
		EarRight: EyeAspectRatio(SelectByIndices(idx, RightEyeIndices)),
		MAR:      MouthAspectRatio(SelectByIndices(idx, MouthIndices)),
		Yaw:      HeadYaw(idx),
	}
}
