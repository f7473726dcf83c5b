// Package registration decides who may join an event and how the three
// membership sets of an event change on join, leave, approve, reject and
// promote. Every function is pure: inputs are read, never modified, and no
// state is kept between calls.
package registration

import (
	"slices"
	"time"

	"begegnungscafe/internal/domain"
)

// Check evaluates the eligibility gate at instant now, ignoring capacity.
// It returns ReasonNone when user may join, ReasonRegistrationClosed when the
// event does not accept registrations, and ReasonIneligible when a gender or
// age restriction excludes the user.
func Check(user *domain.User, event *domain.Event, now time.Time) domain.Reason {
	if user == nil || event == nil {
		return domain.ReasonNotFound
	}
	if !event.IsRegistrationOpen {
		return domain.ReasonRegistrationClosed
	}
	if r := event.GenderRestriction; r != "" && r != domain.GenderRestrictionNone {
		// An unset gender never satisfies a restriction.
		if string(user.Gender) != string(r) {
			return domain.ReasonIneligible
		}
	}
	if user.BirthYear != nil {
		age := now.Year() - *user.BirthYear
		if event.MinAge != nil && age < *event.MinAge {
			return domain.ReasonIneligible
		}
		if event.MaxAge != nil && age > *event.MaxAge {
			return domain.ReasonIneligible
		}
	}
	return domain.ReasonNone
}

// CanJoin reports whether user passes the eligibility gate at instant now.
func CanJoin(user *domain.User, event *domain.Event, now time.Time) bool {
	return Check(user, event, now) == domain.ReasonNone
}

// CanEdit reports whether user may manage event: admins always, organizers
// for events they created or whose category they are scoped to.
func CanEdit(user *domain.User, event *domain.Event) bool {
	if user == nil || event == nil {
		return false
	}
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleOrganizer:
		return event.CreatedBy == user.ID || slices.Contains(user.AllowedCategories, event.Category)
	}
	return false
}
