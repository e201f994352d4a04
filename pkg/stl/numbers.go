package stl

import (
	"math"
	"strconv"
)

// parseCoordinate parses a vertex coordinate. The whole token must be a
// number; NaN, infinities and values out of float64 range are rejected.
func parseCoordinate(token string) (float64, bool) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
