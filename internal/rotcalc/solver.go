package rotcalc

import (
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mk-obs/telops/internal/astro"
)

// ErrBelowHorizon is returned when the target is not above the horizon at
// either endpoint of the exposure window.
var ErrBelowHorizon = errors.New("target below horizon for the whole exposure window")

// Request describes one solve invocation.
type Request struct {
	Target      astro.Target
	PADeg       float64
	StartTime   time.Time
	DurationSec float64
	Instrument  string

	// current mechanical angles, used as the proximity reference
	CurRotDeg float64
	CurAzDeg  float64
}

// Result is the computed record for one invocation. Angle fields are
// degrees; NaN marks an absent azimuth candidate.
type Result struct {
	TimeLabel string
	Name      string
	RAStr     string
	DecStr    string
	PADeg     float64

	PangStartDeg float64
	PangStopDeg  float64

	Rot1      Candidate
	Rot2      Candidate
	RotChosen Pair
	OffsetDeg float64

	ElStartDeg float64
	ElStopDeg  float64

	Az1      Pair
	Az2      Pair
	AzChosen Pair
}

// Solver computes rotator and azimuth choices against a fixed site.
type Solver struct {
	observer astro.Observer
	tz       *time.Location
	logger   *zap.Logger
}

// NewSolver creates a solver for the given site observer. Result time
// labels are rendered in tz; nil means UTC.
func NewSolver(observer astro.Observer, tz *time.Location, logger *zap.Logger) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Solver{observer: observer, tz: tz, logger: logger}
}

// Solve computes the feasible rotator and azimuth spans for the request and
// picks the optimal candidates against the instrument and azimuth limits.
// The Result is populated even when an error is returned, so callers can
// still report the rejected candidates.
func (s *Solver) Solve(req Request) (Result, error) {
	stopTime := req.StartTime.Add(time.Duration(req.DurationSec * float64(time.Second)))

	ephStart := astro.Calc(req.Target, s.observer, req.StartTime)
	ephStop := astro.Calc(req.Target, s.observer, stopTime)

	res := Result{
		TimeLabel:    req.StartTime.In(s.tz).Format("15:04:05"),
		Name:         req.Target.Name,
		RAStr:        astro.RAToString(req.Target.RADeg),
		DecStr:       astro.DecToString(req.Target.DecDeg),
		PADeg:        req.PADeg,
		PangStartDeg: ephStart.PangDeg,
		PangStopDeg:  ephStop.PangDeg,
		ElStartDeg:   ephStart.AltDeg,
		ElStopDeg:    ephStop.AltDeg,
		RotChosen:    NoPair,
		OffsetDeg:    math.NaN(),
		Az1:          NoPair,
		Az2:          NoPair,
		AzChosen:     NoPair,
	}

	if ephStart.AltDeg <= 0 && ephStop.AltDeg <= 0 {
		s.logger.Warn("target not visible in exposure window",
			zap.String("target", req.Target.Name),
			zap.Float64("el_start_deg", ephStart.AltDeg),
			zap.Float64("el_stop_deg", ephStop.AltDeg))
		return res, ErrBelowHorizon
	}

	rot1, rot2 := PossibleRotations(ephStart.PangDeg, ephStop.PangDeg,
		req.PADeg, req.Instrument)
	res.Rot1, res.Rot2 = rot1, rot2

	lim := RotatorLimits(req.Instrument)
	rotChosen, rotErr := OptimalRotation(rot1.Pair, rot2.Pair,
		req.CurRotDeg, lim.MinDeg, lim.MaxDeg)
	if rotErr == nil {
		res.RotChosen = rotChosen
		// the offset angle follows whichever wrap solution was picked;
		// the wrap states differ by a full turn, so compare absolutely
		res.OffsetDeg = rot1.OffsetDeg
		if math.Abs(rotChosen.StartDeg-rot1.StartDeg) > 0.1 {
			res.OffsetDeg = rot2.OffsetDeg
		}
	}

	azChoices := PossibleAzimuths(req.Target.DecDeg,
		ephStart.AzDeg, ephStop.AzDeg, s.observer.LatDeg)
	if len(azChoices) > 0 {
		res.Az1 = azChoices[0]
	}
	if len(azChoices) > 1 {
		res.Az2 = azChoices[1]
	}
	azChosen, azErr := OptimalRotation(res.Az1, res.Az2,
		req.CurAzDeg, AzimuthLimits.MinDeg, AzimuthLimits.MaxDeg)
	if azErr == nil {
		res.AzChosen = azChosen
	}

	if rotErr != nil {
		return res, fmt.Errorf("rotator for %s: %w", req.Instrument, rotErr)
	}
	if azErr != nil {
		return res, fmt.Errorf("azimuth: %w", azErr)
	}

	s.logger.Debug("solved rotation",
		zap.String("target", req.Target.Name),
		zap.String("instrument", req.Instrument),
		zap.Float64("rot_chosen_deg", res.RotChosen.StartDeg),
		zap.Float64("az_chosen_deg", res.AzChosen.StartDeg))

	return res, nil
}
