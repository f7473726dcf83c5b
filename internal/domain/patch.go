package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// Nullable is an optional JSON field that distinguishes an absent key from an
// explicit null. Set is true when the key was present; Value is nil for null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// NullableOf returns a Nullable holding v.
func NullableOf[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a Nullable that clears the field.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

// UnmarshalJSON implements json.Unmarshaler. It is only invoked when the key
// is present in the document.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// EventPatch lists every event field an organizer may change after creation.
// Membership, ownership and series metadata are deliberately absent.
type EventPatch struct {
	Title              *string            `json:"title,omitempty"`
	Description        *string            `json:"description,omitempty"`
	Location           *string            `json:"location,omitempty"`
	Category           *string            `json:"category,omitempty"`
	DateTimeStart      *time.Time         `json:"date_time_start,omitempty"`
	DateTimeEnd        *time.Time         `json:"date_time_end,omitempty"`
	MaxParticipants    Nullable[int]      `json:"max_participants"`
	RegistrationMode   *RegistrationMode  `json:"registration_mode,omitempty"`
	IsRegistrationOpen *bool              `json:"is_registration_open,omitempty"`
	GenderRestriction  *GenderRestriction `json:"gender_restriction,omitempty"`
	MinAge             Nullable[int]      `json:"min_age"`
	MaxAge             Nullable[int]      `json:"max_age"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.Category == nil &&
		p.DateTimeStart == nil && p.DateTimeEnd == nil && !p.MaxParticipants.Set &&
		p.RegistrationMode == nil && p.IsRegistrationOpen == nil && p.GenderRestriction == nil &&
		!p.MinAge.Set && !p.MaxAge.Set
}

// Apply returns a copy of e with the patch applied. e is not modified.
func (p EventPatch) Apply(e Event) Event {
	out := e
	out.Membership = e.Membership.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Location != nil {
		out.Location = *p.Location
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.DateTimeStart != nil {
		out.DateTimeStart = *p.DateTimeStart
	}
	if p.DateTimeEnd != nil {
		out.DateTimeEnd = *p.DateTimeEnd
	}
	if p.MaxParticipants.Set {
		out.MaxParticipants = p.MaxParticipants.Value
	}
	if p.RegistrationMode != nil {
		out.RegistrationMode = *p.RegistrationMode
	}
	if p.IsRegistrationOpen != nil {
		out.IsRegistrationOpen = *p.IsRegistrationOpen
	}
	if p.GenderRestriction != nil {
		out.GenderRestriction = *p.GenderRestriction
	}
	if p.MinAge.Set {
		out.MinAge = p.MinAge.Value
	}
	if p.MaxAge.Set {
		out.MaxAge = p.MaxAge.Value
	}
	return out
}

// BookingPatch is the requester's edit of an existing room booking.
type BookingPatch struct {
	Title     *string    `json:"title,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BookingPatch) IsEmpty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil
}

// ChangesInterval reports whether the patch moves the booking in time.
func (p BookingPatch) ChangesInterval() bool {
	return p.StartTime != nil || p.EndTime != nil
}

// Apply returns a copy of b with the patch applied. b is not modified.
func (p BookingPatch) Apply(b RoomBooking) RoomBooking {
	out := b
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.StartTime != nil {
		out.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		out.EndTime = *p.EndTime
	}
	return out
}
