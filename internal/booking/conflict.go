package booking

import (
	"time"

	"begegnungscafe/internal/domain"
)

// Conflicts returns the bookings of roomID that block [start, end). Rejected
// bookings and the booking with id excludeID are skipped; pass "" to exclude
// nothing. The result is a new slice in input order.
func Conflicts(roomID string, start, end time.Time, bookings []*domain.RoomBooking, excludeID string) []domain.RoomBooking {
	var out []domain.RoomBooking
	for _, b := range bookings {
		if b == nil || b.RoomID != roomID || !b.Status.Blocks() {
			continue
		}
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		if Overlaps(start, end, b.StartTime, b.EndTime) {
			out = append(out, *b)
		}
	}
	return out
}

// IsAvailable reports whether no blocking booking of roomID overlaps
// [start, end). It never fails; deciding what an unavailable slot means is
// up to the caller.
func IsAvailable(roomID string, start, end time.Time, bookings []*domain.RoomBooking, excludeID string) bool {
	return len(Conflicts(roomID, start, end, bookings, excludeID)) == 0
}
