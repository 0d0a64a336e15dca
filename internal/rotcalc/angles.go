// Package rotcalc computes feasible telescope rotator and azimuth angle
// ranges for a target, position angle and exposure window, and resolves the
// cable-wrap ambiguity of an alt-az mount against hard travel limits.
package rotcalc

import "math"

// Pair is a rotator or azimuth angle span over an exposure window, in
// degrees. NaN endpoints mean "no candidate".
type Pair struct {
	StartDeg float64 `json:"start_deg"`
	StopDeg  float64 `json:"stop_deg"`
}

// NoPair is the sentinel for an absent candidate.
var NoPair = Pair{StartDeg: math.NaN(), StopDeg: math.NaN()}

// Valid reports whether both endpoints are real numbers.
func (p Pair) Valid() bool {
	return !math.IsNaN(p.StartDeg) && !math.IsNaN(p.StopDeg)
}

// within reports whether the whole span lies inside [minDeg, maxDeg].
// Limits are absolute mechanical angles, not modular.
func (p Pair) within(minDeg, maxDeg float64) bool {
	lo, hi := p.StartDeg, p.StopDeg
	if lo > hi {
		lo, hi = hi, lo
	}
	return p.Valid() && lo >= minDeg && hi <= maxDeg
}

// norm360 normalizes an angle to [0, 360).
func norm360(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// norm180 normalizes an angle to (-180, 180].
func norm180(deg float64) float64 {
	deg = norm360(deg)
	if deg > 180 {
		deg -= 360
	}
	return deg
}

// AngSep is the smallest angular separation between two angles, in degrees.
// It is invariant under adding or subtracting full turns to either operand.
func AngSep(aDeg, bDeg float64) float64 {
	return math.Abs(norm180(aDeg - bDeg))
}
