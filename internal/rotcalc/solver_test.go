package rotcalc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mk-obs/telops/internal/astro"
)

var testObserver = astro.Observer{
	Name:   "Subaru",
	LatDeg: 19.8285,
	LonDeg: -155.4761,
	ElevM:  4139,
}

func TestSolveCircumpolarTarget(t *testing.T) {
	solver := NewSolver(testObserver, time.UTC, nil)

	res, err := solver.Solve(Request{
		Target: astro.Target{
			Name:    "Polaris",
			RADeg:   37.95,
			DecDeg:  89.26,
			Equinox: 2000,
		},
		PADeg:       0,
		StartTime:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DurationSec: 1800,
		Instrument:  "PFS",
		CurRotDeg:   0,
		CurAzDeg:    0,
	})

	assert.NoError(t, err)
	assert.Equal(t, "10:00:00", res.TimeLabel)
	assert.Equal(t, "Polaris", res.Name)
	assert.Greater(t, res.ElStartDeg, 0.0)
	assert.Greater(t, res.ElStopDeg, 0.0)

	assert.True(t, res.RotChosen.Valid())
	assert.True(t, res.AzChosen.Valid())
	assert.False(t, math.IsNaN(res.OffsetDeg))

	// the chosen rotator span is one of the two wrap candidates
	isSol1 := math.Abs(res.RotChosen.StartDeg-res.Rot1.StartDeg) < 1e-9
	isSol2 := math.Abs(res.RotChosen.StartDeg-res.Rot2.StartDeg) < 1e-9
	assert.True(t, isSol1 || isSol2)
}

func TestSolveBelowHorizon(t *testing.T) {
	solver := NewSolver(testObserver, time.UTC, nil)

	// from +19.8 latitude a dec -85 target never rises
	res, err := solver.Solve(Request{
		Target: astro.Target{
			Name:   "far-south",
			RADeg:  180,
			DecDeg: -85,
		},
		StartTime:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DurationSec: 600,
		Instrument:  "PFS",
	})

	assert.ErrorIs(t, err, ErrBelowHorizon)
	// the record is still populated for the operator table
	assert.Equal(t, "far-south", res.Name)
	assert.Less(t, res.ElStartDeg, 0.0)
	assert.False(t, res.RotChosen.Valid())
}

func TestSolveTimeLabelUsesTimezone(t *testing.T) {
	hst := time.FixedZone("HST", -10*3600)
	solver := NewSolver(testObserver, hst, nil)

	res, _ := solver.Solve(Request{
		Target:      astro.Target{Name: "x", RADeg: 37.95, DecDeg: 89.26},
		StartTime:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DurationSec: 60,
		Instrument:  "PFS",
	})

	assert.Equal(t, "00:00:00", res.TimeLabel)
}

func TestSolveOffsetFollowsChosenWrapState(t *testing.T) {
	solver := NewSolver(testObserver, time.UTC, nil)

	// a current rotator angle deep on the negative side pulls the choice
	// to whichever candidate starts negative
	res, err := solver.Solve(Request{
		Target:      astro.Target{Name: "x", RADeg: 37.95, DecDeg: 89.26},
		StartTime:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DurationSec: 600,
		Instrument:  "PFS",
		CurRotDeg:   res0RotStart(solver) - 1, // near the chosen wrap state
	})
	assert.NoError(t, err)

	if math.Abs(res.RotChosen.StartDeg-res.Rot1.StartDeg) < 0.1 {
		assert.InDelta(t, res.Rot1.OffsetDeg, res.OffsetDeg, 1e-9)
	} else {
		assert.InDelta(t, res.Rot2.OffsetDeg, res.OffsetDeg, 1e-9)
	}
}

// res0RotStart solves once with a zero reference and returns the first
// wrap candidate's start angle.
func res0RotStart(solver *Solver) float64 {
	res, _ := solver.Solve(Request{
		Target:      astro.Target{Name: "x", RADeg: 37.95, DecDeg: 89.26},
		StartTime:   time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
		DurationSec: 600,
		Instrument:  "PFS",
	})
	return res.Rot1.StartDeg
}

func TestResultLog(t *testing.T) {
	log := NewResultLog()

	r1 := Result{TimeLabel: "10:00:00", Name: "a", RotChosen: Pair{StartDeg: 1, StopDeg: 2}}
	r2 := Result{TimeLabel: "09:00:00", Name: "b"}
	log.Add(r1)
	log.Add(r2)

	rows := log.Rows()
	assert.Len(t, rows, 2)
	assert.Equal(t, "09:00:00", rows[0].Time)
	assert.Equal(t, "10:00:00", rows[1].Time)

	// same time label overwrites
	log.Add(Result{TimeLabel: "10:00:00", Name: "c"})
	rows = log.Rows()
	assert.Len(t, rows, 2)
	assert.Equal(t, "c", rows[1].Name)

	log.Clear()
	assert.Empty(t, log.Rows())
}

func TestFormatRowRendersNaN(t *testing.T) {
	row := FormatRow(Result{
		TimeLabel: "10:00:00",
		RotChosen: NoPair,
		OffsetDeg: math.NaN(),
		Az2:       NoPair,
	})

	assert.Equal(t, "NaN", row.RotChosen)
	assert.Equal(t, "NaN", row.Offset)
	assert.Equal(t, "NaN", row.Az2Start)
	assert.Equal(t, "0.0", row.Az1Start)
}
