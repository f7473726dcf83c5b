package domain

import (
	"context"
	"time"
)

// BookingStatus is the lifecycle state of a room booking.
type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
)

// Blocks reports whether a booking in this status reserves its slot.
// Rejected bookings free the room.
func (s BookingStatus) Blocks() bool {
	return s == BookingRequested || s == BookingApproved
}

// Room is a bookable room or desk.
// swagger:model Room
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Capacity    int       `json:"capacity"`
	NotBookable bool      `json:"not_bookable"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoomBooking reserves a room for the half-open interval [StartTime, EndTime).
// swagger:model RoomBooking
type RoomBooking struct {
	ID          string        `json:"id"`
	RoomID      string        `json:"room_id"`
	RequestedBy string        `json:"requested_by"`
	Title       string        `json:"title"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Status      BookingStatus `json:"status"`
	AdminNote   *string       `json:"admin_note"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// BookingFilter narrows booking listings. Zero fields are ignored.
type BookingFilter struct {
	RoomID      string
	RequestedBy string
	Status      BookingStatus
	From        *time.Time
	To          *time.Time
}

// CreateBookingInput carries a new booking request.
type CreateBookingInput struct {
	RoomID    string
	Title     string
	StartTime time.Time
	EndTime   time.Time
}

// RoomRepository defines the interface for room storage
type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*Room, error)
	List(ctx context.Context) ([]*Room, error)
}

// BookingRepository defines the interface for room booking storage
type BookingRepository interface {
	Create(ctx context.Context, booking *RoomBooking) error
	GetByID(ctx context.Context, id string) (*RoomBooking, error)
	List(ctx context.Context, filter BookingFilter) ([]*RoomBooking, error)
	// ListByRoom returns every booking of the room, rejected ones included.
	ListByRoom(ctx context.Context, roomID string) ([]*RoomBooking, error)
	UpdateInterval(ctx context.Context, booking *RoomBooking) error
	UpdateStatus(ctx context.Context, id string, status BookingStatus, adminNote *string) (*RoomBooking, error)
	// WithRoomLock serializes conflict-check-then-write per room.
	WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context, tx BookingRepository) error) error
}

// Availability is the verdict for a candidate interval.
// swagger:model Availability
type Availability struct {
	RoomID    string        `json:"room_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Available bool          `json:"available"`
	Conflicts []RoomBooking `json:"conflicts"`
}

// BookingService defines the business logic for room bookings.
type BookingService interface {
	ListRooms(ctx context.Context) ([]*Room, error)
	CheckAvailability(ctx context.Context, roomID string, start, end time.Time, excludeID string) (*Availability, error)
	RequestBooking(ctx context.Context, userID string, input CreateBookingInput) (*RoomBooking, error)
	UpdateBooking(ctx context.Context, userID, bookingID string, patch BookingPatch) (*RoomBooking, error)
	ApproveBooking(ctx context.Context, adminID, bookingID string, note *string) (*RoomBooking, error)
	RejectBooking(ctx context.Context, adminID, bookingID string, note *string) (*RoomBooking, error)
	ListBookings(ctx context.Context, userID string, filter BookingFilter) ([]*RoomBooking, error)
}
