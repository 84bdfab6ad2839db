package game

import "math"

// percentScale is the upper bound of percentage-style scores
const percentScale = 100

// Normalize converts a raw score into a count of correct levels.
//
// Game sessions report either "count correct" or "percent correct"; a raw
// score above totalLevels is read as a 0-100 percentage. For totalLevels >= 1
// the result is always in [0, totalLevels]. totalLevels <= 0 passes rawScore
// through untouched.
func Normalize(rawScore, totalLevels int) int {
	if totalLevels <= 0 {
		return rawScore
	}
	if rawScore <= totalLevels {
		if rawScore < 0 {
			return 0
		}
		return rawScore
	}

	pct := clamp(rawScore, 0, percentScale)
	levels := int(math.Round(float64(pct) / percentScale * float64(totalLevels)))
	return clamp(levels, 0, totalLevels)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
