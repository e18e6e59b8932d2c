package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount coerces a free-form monetary field to a float64. Currency
// symbols, thousands separators and surrounding whitespace are stripped.
// Anything that still fails to parse becomes 0 so a single bad cell never
// aborts an import batch.
func ParseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.Trim(s, "()")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if neg {
		v = -v
	}
	return v
}

// ParseQty coerces a package-quantity field to an int, defaulting to 1.
func ParseQty(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 1
}

// Round2 rounds to two decimal places. Report totals are summed exactly and
// rounded once at the point of response, never per contribution.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
