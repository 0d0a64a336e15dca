package astro

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var maunaKea = Observer{
	Name:   "Subaru",
	LatDeg: 19.8285,
	LonDeg: -155.4761,
	ElevM:  4139,
}

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want float64
	}{
		{
			name: "J2000 epoch",
			time: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			want: 2451545.0,
		},
		{
			name: "start of 2026",
			time: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			want: 2461041.5,
		},
		{
			name: "february handles month shift",
			time: time.Date(1999, 2, 14, 18, 0, 0, 0, time.UTC),
			want: 2451224.25,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, julianDate(tt.time), 1e-6)
		})
	}
}

func TestGreenwichMeanSiderealTime(t *testing.T) {
	// at the J2000 epoch GMST is the leading constant of the series
	gmst := greenwichMeanSiderealTime(time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC))
	assert.InDelta(t, 280.46061837, gmst, 1e-6)

	// one sidereal day later the angle repeats
	later := time.Date(2000, 1, 2, 11, 56, 4, 90531000, time.UTC)
	assert.InDelta(t, gmst, greenwichMeanSiderealTime(later), 1e-3)
}

func TestCalcOnMeridian(t *testing.T) {
	// a target with RA equal to the local sidereal time sits on the
	// meridian: hour angle zero, parallactic angle zero, peak elevation
	when := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	lst := localSiderealTime(when, maunaKea.LonDeg)

	tgt := Target{Name: "meridian", RADeg: lst, DecDeg: 45, Equinox: 2000}
	eph := Calc(tgt, maunaKea, when)

	assert.InDelta(t, 0, eph.PangDeg, 1e-6)
	assert.InDelta(t, 90-math.Abs(maunaKea.LatDeg-45), eph.AltDeg, 1e-6)
	// north of zenith for dec above the site latitude
	assert.InDelta(t, 0, eph.AzDeg, 1e-3)
}

func TestCalcAltAtPole(t *testing.T) {
	// from the north pole the elevation of any target equals its declination
	pole := Observer{Name: "pole", LatDeg: 90}
	when := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, dec := range []float64{-60, -10, 0, 35, 80} {
		eph := Calc(Target{RADeg: 123.4, DecDeg: dec}, pole, when)
		assert.InDelta(t, dec, eph.AltDeg, 1e-6, "dec %v", dec)
	}
}

func TestCalcCircumpolarStaysUp(t *testing.T) {
	tgt := Target{Name: "near-pole", RADeg: 37.95, DecDeg: 89.26, Equinox: 2000}
	start := time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 24; i++ {
		eph := Calc(tgt, maunaKea, start.Add(time.Duration(i)*time.Hour))
		assert.Greater(t, eph.AltDeg, 0.0, "hour %d", i)
		assert.GreaterOrEqual(t, eph.AzDeg, 0.0)
		assert.Less(t, eph.AzDeg, 360.0)
	}
}

func TestCalcParallacticAngleSign(t *testing.T) {
	when := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	lst := localSiderealTime(when, maunaKea.LonDeg)

	// east of the meridian (negative hour angle) the parallactic angle is
	// negative, west positive
	east := Calc(Target{RADeg: lst + 30, DecDeg: 10}, maunaKea, when)
	west := Calc(Target{RADeg: lst - 30, DecDeg: 10}, maunaKea, when)

	assert.Negative(t, east.PangDeg)
	assert.Positive(t, west.PangDeg)
}
