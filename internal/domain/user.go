package domain

import (
	"context"
	"slices"
)

// Role is the application role of a user.
type Role string

const (
	RoleUser      Role = "user"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

// Gender as recorded on the user profile. The zero value means unset.
type Gender string

const (
	GenderUnset  Gender = ""
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderDivers Gender = "divers"
)

// User is the profile of an authenticated member. Identity is owned by the
// external identity provider; this service only reads it.
// swagger:model User
type User struct {
	ID                string   `json:"id"`
	Email             string   `json:"email"`
	DisplayName       string   `json:"display_name"`
	Role              Role     `json:"role"`
	Gender            Gender   `json:"gender,omitempty"`
	BirthYear         *int     `json:"birth_year,omitempty"`
	AllowedCategories []string `json:"allowed_categories"`
	// AllowedRoomIDs nil means every room may be booked.
	AllowedRoomIDs []string `json:"allowed_room_ids"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsOrganizer reports whether the user may create events (organizer or admin).
func (u *User) IsOrganizer() bool {
	return u != nil && (u.Role == RoleOrganizer || u.Role == RoleAdmin)
}

// MayUseCategory reports whether an organizer is scoped to category.
// Admins may use every category.
func (u *User) MayUseCategory(category string) bool {
	if u.IsAdmin() {
		return true
	}
	return u.Role == RoleOrganizer && slices.Contains(u.AllowedCategories, category)
}

// MayBookRoom reports whether the user's room permissions include roomID.
func (u *User) MayBookRoom(roomID string) bool {
	if u == nil {
		return false
	}
	if u.IsAdmin() || u.AllowedRoomIDs == nil {
		return true
	}
	return slices.Contains(u.AllowedRoomIDs, roomID)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository reads user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
