package util

import "math/rand/v2"

// Trimester bands mapping pregnancy trimesters to week ranges.
const (
	firstTrimesterEnd  = 12
	secondTrimesterEnd = 26
	thirdTrimesterEnd  = 40
)

// WeekNumberForTrimester rolls a pseudo-random pregnancy week from the band
// for the given trimester: 1 -> [1,12], 2 -> [13,26], anything else -> [27,40].
// The roll is repeated on every generation request, not fixed per user.
func WeekNumberForTrimester(trimester int) int {
	switch trimester {
	case 1:
		return randBetween(1, firstTrimesterEnd)
	case 2:
		return randBetween(firstTrimesterEnd+1, secondTrimesterEnd)
	default:
		return randBetween(secondTrimesterEnd+1, thirdTrimesterEnd)
	}
}

// randBetween returns a random int in [lo, hi] inclusive.
func randBetween(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}
