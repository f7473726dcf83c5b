// Package booking decides whether a room is free for a candidate interval.
// Intervals are half-open: a booking ending at T does not collide with one
// starting at T.
package booking

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) share an instant.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
