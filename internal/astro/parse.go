package astro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRA converts a sexagesimal right ascension string ("HH:MM:SS.sss")
// to degrees. A bare decimal number is interpreted as degrees directly.
func ParseRA(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty RA string")
	}
	if !strings.Contains(s, ":") {
		deg, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("bad RA %q: %w", s, err)
		}
		return normRA(deg), nil
	}
	h, m, sec, sign, err := splitSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("bad RA %q: %w", s, err)
	}
	if sign < 0 {
		return 0, fmt.Errorf("bad RA %q: negative hour angle", s)
	}
	if h >= 24 || m >= 60 || sec >= 60 {
		return 0, fmt.Errorf("bad RA %q: component out of range", s)
	}
	return normRA((h + m/60 + sec/3600) * 15.0), nil
}

// ParseDec converts a sexagesimal declination string ("+DD:MM:SS.ss")
// to degrees. A bare decimal number is interpreted as degrees directly.
func ParseDec(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty DEC string")
	}
	if !strings.Contains(s, ":") {
		deg, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("bad DEC %q: %w", s, err)
		}
		if deg < -90 || deg > 90 {
			return 0, fmt.Errorf("bad DEC %q: out of range", s)
		}
		return deg, nil
	}
	d, m, sec, sign, err := splitSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("bad DEC %q: %w", s, err)
	}
	if d > 90 || m >= 60 || sec >= 60 {
		return 0, fmt.Errorf("bad DEC %q: component out of range", s)
	}
	deg := sign * (d + m/60 + sec/3600)
	if deg < -90 || deg > 90 {
		return 0, fmt.Errorf("bad DEC %q: out of range", s)
	}
	return deg, nil
}

// RAToString formats right ascension degrees as "HH:MM:SS.sss".
func RAToString(raDeg float64) string {
	hours := normRA(raDeg) / 15.0
	h := int(hours)
	mf := (hours - float64(h)) * 60
	m := int(mf)
	s := (mf - float64(m)) * 60
	// avoid "60.000" seconds from rounding
	if s > 59.9995 {
		s = 0
		m++
		if m == 60 {
			m = 0
			h = (h + 1) % 24
		}
	}
	return fmt.Sprintf("%02d:%02d:%06.3f", h, m, s)
}

// DecToString formats declination degrees as "+DD:MM:SS.ss".
func DecToString(decDeg float64) string {
	sign := "+"
	if decDeg < 0 {
		sign = "-"
		decDeg = -decDeg
	}
	d := int(decDeg)
	mf := (decDeg - float64(d)) * 60
	m := int(mf)
	s := (mf - float64(m)) * 60
	if s > 59.995 {
		s = 0
		m++
		if m == 60 {
			m = 0
			d++
		}
	}
	return fmt.Sprintf("%s%02d:%02d:%05.2f", sign, d, m, s)
}

func splitSexagesimal(s string) (a, b, c, sign float64, err error) {
	sign = 1
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, 0, fmt.Errorf("expected 2 or 3 ':'-separated fields")
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, perr := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if perr != nil {
			return 0, 0, 0, 0, perr
		}
		if v < 0 {
			return 0, 0, 0, 0, fmt.Errorf("unexpected sign inside field %d", i+1)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], sign, nil
}

func normRA(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}
