package telemetry

import (
	"math"
	"math/rand"

	"v2x-sim/internal/geo"
)

const (
	maxSpeedDeltaKmh   = 5.0
	maxHeadingDeltaDeg = 15.0
)

// MovementModel advances vehicle kinematics one tick at a time.
type MovementModel struct {
	Bounds                  geo.Bounds
	MaxSpeedKmh             float64
	StatusChangeProbability float64
	rand                    *rand.Rand
}

// NewMovementModel creates a movement model drawing from r.
func NewMovementModel(bounds geo.Bounds, maxSpeedKmh, statusChangeProb float64, r *rand.Rand) *MovementModel {
	return &MovementModel{
		Bounds:                  bounds,
		MaxSpeedKmh:             maxSpeedKmh,
		StatusChangeProbability: statusChangeProb,
		rand:                    r,
	}
}

// Advance returns v moved forward by dtSeconds. Speed and heading get a small
// random nudge, the position is projected on a flat earth and hard-clamped to
// the bounds, so vehicles pile up at the edges instead of wrapping.
func (m *MovementModel) Advance(v Vehicle, dtSeconds float64) Vehicle {
	out := v.Clone()

	speed := v.SpeedKmh + (m.rand.Float64()-0.5)*2*maxSpeedDeltaKmh
	heading := v.HeadingDeg + (m.rand.Float64()-0.5)*2*maxHeadingDeltaDeg
	speed = math.Max(0, math.Min(m.MaxSpeedKmh, speed))

	distanceM := speed / 3.6 * dtSeconds
	rad := heading * math.Pi / 180
	pos := geo.Offset(v.Position, distanceM*math.Cos(rad), distanceM*math.Sin(rad))

	out.Position = m.Bounds.Clamp(pos)
	out.SpeedKmh = speed
	out.HeadingDeg = normalizeHeading(heading)

	if m.rand.Float64() < m.StatusChangeProbability {
		out.Status = m.randomStatus()
	}
	return out
}

// randomStatus resamples a status: normal 30%, otherwise suspicious or compromised evenly.
func (m *MovementModel) randomStatus() VehicleStatus {
	if m.rand.Float64() > 0.7 {
		return VehicleNormal
	}
	if m.rand.Float64() > 0.5 {
		return VehicleSuspicious
	}
	return VehicleCompromised
}

func normalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}
