// Package astro provides the observer/target model and the body-position
// calculations (azimuth, elevation, parallactic angle) that the rotation
// solver consumes.
package astro

import (
	"math"
	"time"
)

// Target is a fixed sky position. It is immutable once constructed.
type Target struct {
	Name    string  `json:"name"`
	RADeg   float64 `json:"ra_deg"`  // 0-360
	DecDeg  float64 `json:"dec_deg"` // -90 to +90
	Equinox float64 `json:"equinox"` // e.g. 2000.0
}

// Observer is a ground-based observing site.
type Observer struct {
	Name   string  `json:"name"`
	LatDeg float64 `json:"lat_deg"` // north positive
	LonDeg float64 `json:"lon_deg"` // east positive
	ElevM  float64 `json:"elev_m"`
}

// Ephemeris is the body position for one target, observer and time sample.
// Values are read-only once computed.
type Ephemeris struct {
	AzDeg   float64 `json:"az_deg"`   // 0=N, 90=E, 180=S, 270=W
	AltDeg  float64 `json:"alt_deg"`  // 0=horizon, 90=zenith
	PangDeg float64 `json:"pang_deg"` // parallactic angle, (-180, 180]
}

// Calc computes the ephemeris for the target as seen by obs at time t.
func Calc(tgt Target, obs Observer, t time.Time) Ephemeris {
	lat := degToRad(obs.LatDeg)
	ra := degToRad(tgt.RADeg)
	dec := degToRad(tgt.DecDeg)

	lst := localSiderealTime(t, obs.LonDeg)
	ha := degToRad(lst) - ra

	// altitude
	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	if sinAlt > 1 {
		sinAlt = 1
	} else if sinAlt < -1 {
		sinAlt = -1
	}
	alt := math.Asin(sinAlt)

	// azimuth, measured from north through east
	cosAz := (math.Sin(dec) - math.Sin(alt)*math.Sin(lat)) / (math.Cos(alt) * math.Cos(lat))
	if cosAz > 1 {
		cosAz = 1
	} else if cosAz < -1 {
		cosAz = -1
	}
	az := math.Acos(cosAz)
	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	// parallactic angle: zero on the meridian, positive east of it
	pang := math.Atan2(math.Sin(ha),
		math.Tan(lat)*math.Cos(dec)-math.Sin(dec)*math.Cos(ha))

	return Ephemeris{
		AzDeg:   radToDeg(az),
		AltDeg:  radToDeg(alt),
		PangDeg: radToDeg(pang),
	}
}

// localSiderealTime returns the local sidereal time in degrees for a given
// UTC time and observer longitude.
func localSiderealTime(t time.Time, lonDeg float64) float64 {
	lst := math.Mod(greenwichMeanSiderealTime(t)+lonDeg, 360)
	if lst < 0 {
		lst += 360
	}
	return lst
}

// greenwichMeanSiderealTime returns GMST in degrees (IAU 1982 formula).
func greenwichMeanSiderealTime(t time.Time) float64 {
	jd := julianDate(t)
	T := (jd - 2451545.0) / 36525.0

	gmst := 280.46061837 +
		360.98564736629*(jd-2451545.0) +
		0.000387933*T*T -
		T*T*T/38710000.0

	gmst = math.Mod(gmst, 360)
	if gmst < 0 {
		gmst += 360
	}
	return gmst
}

// julianDate returns the Julian Date for t.
func julianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	dayFrac := (float64(t.Hour()) +
		float64(t.Minute())/60 +
		float64(t.Second())/3600 +
		float64(t.Nanosecond())/3600e9) / 24.0

	// January/February count as months 13/14 of the previous year
	if m <= 2 {
		y--
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	return math.Floor(365.25*(y+4716)) +
		math.Floor(30.6001*(m+1)) +
		d + dayFrac + B - 1524.5
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180 }

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }
