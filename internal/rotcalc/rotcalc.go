package rotcalc

import (
	"errors"
	"math"
)

// ErrOutOfRange is returned when no candidate span fits inside the hard
// travel limits. Callers must surface it; spans are never clamped.
var ErrOutOfRange = errors.New("no rotation candidate within travel limits")

// Candidate is one cable-wrap solution: the rotator span over the exposure
// window plus the offset command angle that realizes the requested sky
// position angle through that solution.
type Candidate struct {
	Pair
	OffsetDeg float64 `json:"offset_deg"`
}

// PossibleRotations derives the two cable-wrap rotator solutions for an
// exposure window from the parallactic angles at the window endpoints, the
// requested position angle, and the instrument rotator geometry. The two
// solutions differ by a full turn; the stop angle follows the start
// continuously (the rotator tracks without jumps during the exposure).
func PossibleRotations(pangStartDeg, pangStopDeg, paDeg float64, instrument string) (Candidate, Candidate) {
	geom := InstrumentGeometry(instrument)

	sign := 1.0
	if geom.Flip {
		sign = -1.0
	}
	rawStart := sign*(pangStartDeg+paDeg) + geom.OffsetDeg
	rawStop := sign*(pangStopDeg+paDeg) + geom.OffsetDeg

	// track continuously through the window
	delta := norm180(rawStop - rawStart)

	start1 := norm180(rawStart)
	sol1 := Candidate{
		Pair:      Pair{StartDeg: start1, StopDeg: start1 + delta},
		OffsetDeg: norm180(sign*paDeg + geom.OffsetDeg),
	}

	// the alternate wrap state is a full turn away, on the other side of zero
	shift := -360.0
	if start1 <= 0 {
		shift = +360.0
	}
	sol2 := Candidate{
		Pair:      Pair{StartDeg: start1 + shift, StopDeg: start1 + delta + shift},
		OffsetDeg: sol1.OffsetDeg + shift,
	}

	return sol1, sol2
}

// PossibleAzimuths derives the continuous azimuth spans the mount can use to
// track the target through the window. Ephemeris azimuths arrive normalized
// to [0, 360); the unwrap direction follows the culmination side: a target
// with declination above the site latitude transits north of zenith, where
// the azimuth decreases through the 0/360 crossing, otherwise it increases
// through south. Zero, one or two wrap states fit the fixed azimuth travel.
func PossibleAzimuths(decDeg, azStartDeg, azStopDeg, obsLatDeg float64) []Pair {
	if math.IsNaN(azStartDeg) || math.IsNaN(azStopDeg) {
		return nil
	}
	start := norm360(azStartDeg)
	stop := norm360(azStopDeg)

	if decDeg > obsLatDeg {
		if stop > start {
			stop -= 360
		}
	} else {
		if stop < start {
			stop += 360
		}
	}

	var out []Pair
	for k := -1.0; k <= 1.0; k++ {
		cand := Pair{StartDeg: start + 360*k, StopDeg: stop + 360*k}
		if cand.within(AzimuthLimits.MinDeg, AzimuthLimits.MaxDeg) {
			out = append(out, cand)
		}
	}
	return out
}

// OptimalRotation selects, among the candidate spans that lie entirely
// within [minDeg, maxDeg], the one whose start angle is closest to curDeg.
// Closeness is periodic (mod 360); since wrap states are equidistant on the
// circle, ties fall to the smaller absolute travel from the current angle.
// NaN candidates are skipped. ErrOutOfRange when nothing fits.
func OptimalRotation(cand1, cand2 Pair, curDeg, minDeg, maxDeg float64) (Pair, error) {
	best := NoPair
	bestSep := math.Inf(1)
	bestTravel := math.Inf(1)

	for _, c := range []Pair{cand1, cand2} {
		if !c.within(minDeg, maxDeg) {
			continue
		}
		sep := AngSep(c.StartDeg, curDeg)
		travel := math.Abs(c.StartDeg - curDeg)
		if sep < bestSep-1e-9 || (math.Abs(sep-bestSep) <= 1e-9 && travel < bestTravel) {
			best = c
			bestSep = sep
			bestTravel = travel
		}
	}

	if !best.Valid() {
		return NoPair, ErrOutOfRange
	}
	return best, nil
}
