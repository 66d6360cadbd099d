package model

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders f in the canonical text form numeric attributes are stored under.
func FormatNumber(f float64) string {
	if f == 0 {
		f = 0 // drop negative zero
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// CanonicalNumber parses s as a finite number and returns its canonical form.
// It is applied to strings only once their field is known to be numeric.
func CanonicalNumber(s string) (string, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return "", false
	}
	return FormatNumber(f), true
}
