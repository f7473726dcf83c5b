package domain

import (
	"context"
	"slices"
	"time"
)

// RegistrationMode decides whether a join is accepted immediately or queued
// for organizer approval.
type RegistrationMode string

const (
	RegistrationInstant RegistrationMode = "instant"
	RegistrationRequest RegistrationMode = "request"
)

// GenderRestriction limits an event to one gender.
type GenderRestriction string

const (
	GenderRestrictionNone   GenderRestriction = "none"
	GenderRestrictionMale   GenderRestriction = "male"
	GenderRestrictionFemale GenderRestriction = "female"
)

// RegistrationState is the position of a user relative to one event.
type RegistrationState string

const (
	StateNone       RegistrationState = "none"
	StateJoined     RegistrationState = "joined"
	StatePending    RegistrationState = "pending"
	StateWaitlisted RegistrationState = "waitlisted"
)

// RecurrenceKind selects how a new event is repeated when it is created.
type RecurrenceKind string

const (
	RecurrenceNone    RecurrenceKind = "none"
	RecurrenceDaily   RecurrenceKind = "daily"
	RecurrenceWeekly  RecurrenceKind = "weekly"
	RecurrenceMonthly RecurrenceKind = "monthly"
)

// Membership holds the three registration sets of an event. A user id is in
// at most one of them. Waitlist order is arrival order.
type Membership struct {
	Participants        []string `json:"participants"`
	PendingParticipants []string `json:"pending_participants"`
	Waitlist            []string `json:"waitlist"`
}

// StateOf returns the registration state of userID.
func (m Membership) StateOf(userID string) RegistrationState {
	switch {
	case slices.Contains(m.Participants, userID):
		return StateJoined
	case slices.Contains(m.PendingParticipants, userID):
		return StatePending
	case slices.Contains(m.Waitlist, userID):
		return StateWaitlisted
	}
	return StateNone
}

// Clone returns a deep copy so callers can derive a new value without
// touching the original slices.
func (m Membership) Clone() Membership {
	return Membership{
		Participants:        cloneIDs(m.Participants),
		PendingParticipants: cloneIDs(m.PendingParticipants),
		Waitlist:            cloneIDs(m.Waitlist),
	}
}

// Equal reports whether both memberships hold the same ids in the same order.
func (m Membership) Equal(o Membership) bool {
	return slices.Equal(m.Participants, o.Participants) &&
		slices.Equal(m.PendingParticipants, o.PendingParticipants) &&
		slices.Equal(m.Waitlist, o.Waitlist)
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}

// Event is a single occurrence offered by an organizer.
// swagger:model Event
type Event struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Location           string            `json:"location"`
	Category           string            `json:"category"`
	CreatedBy          string            `json:"created_by"`
	DateTimeStart      time.Time         `json:"date_time_start"`
	DateTimeEnd        time.Time         `json:"date_time_end"`
	MaxParticipants    *int              `json:"max_participants"`
	RegistrationMode   RegistrationMode  `json:"registration_mode"`
	IsRegistrationOpen bool              `json:"is_registration_open"`
	GenderRestriction  GenderRestriction `json:"gender_restriction"`
	MinAge             *int              `json:"min_age"`
	MaxAge             *int              `json:"max_age"`
	SeriesID           *string           `json:"series_id"`
	RecurrenceRule     *string           `json:"recurrence_rule"`
	Membership
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AtCapacity reports whether the participants set has reached maxParticipants.
// Pending and waitlisted users are not counted.
func (e *Event) AtCapacity() bool {
	return e.MaxParticipants != nil && len(e.Participants) >= *e.MaxParticipants
}

// EventFilter narrows event listings. Zero fields are ignored.
type EventFilter struct {
	Category string
	SeriesID string
	From     *time.Time
	To       *time.Time
}

// CreateEventInput carries the organizer-supplied fields of a new event.
type CreateEventInput struct {
	Title              string
	Description        string
	Location           string
	Category           string
	DateTimeStart      time.Time
	DateTimeEnd        time.Time
	MaxParticipants    *int
	RegistrationMode   RegistrationMode
	IsRegistrationOpen bool
	GenderRestriction  GenderRestriction
	MinAge             *int
	MaxAge             *int
}

// RecurrenceRequest asks for a recurring series. End is required unless Kind
// is RecurrenceNone.
type RecurrenceRequest struct {
	Kind RecurrenceKind
	End  *time.Time
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	// CreateSeries inserts all occurrences of a series in one batch.
	CreateSeries(ctx context.Context, events []*Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	ListBySeriesID(ctx context.Context, seriesID string) ([]*Event, error)
	Update(ctx context.Context, id string, patch EventPatch) (*Event, error)
	SaveMembership(ctx context.Context, eventID string, m Membership) error
	// WithEventLock runs fn with the event row locked until fn returns. The
	// repository passed to fn is bound to the same transaction.
	WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx EventRepository, event *Event) error) error
}

// RegistrationOutcome reports the result of a registration action.
// swagger:model RegistrationOutcome
type RegistrationOutcome struct {
	EventID string            `json:"event_id"`
	UserID  string            `json:"user_id"`
	State   RegistrationState `json:"state"`
	Changed bool              `json:"changed"`
	Reason  Reason            `json:"reason,omitempty"`
}

// RegistrationService runs the registration state machine against stored events.
type RegistrationService interface {
	Join(ctx context.Context, eventID, userID string) (*RegistrationOutcome, error)
	Leave(ctx context.Context, eventID, userID string) (*RegistrationOutcome, error)
	Approve(ctx context.Context, eventID, actorID, userID string) (*RegistrationOutcome, error)
	Reject(ctx context.Context, eventID, actorID, userID string) (*RegistrationOutcome, error)
	Promote(ctx context.Context, eventID, actorID, userID string) (*RegistrationOutcome, error)
	GetState(ctx context.Context, eventID, userID string) (*RegistrationOutcome, error)
}

// EventService defines the business logic for creating and maintaining events.
type EventService interface {
	CreateEvent(ctx context.Context, actorID string, input CreateEventInput, recurrence RecurrenceRequest) ([]*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	UpdateEvent(ctx context.Context, actorID, id string, patch EventPatch) (*Event, error)
	ExportCalendar(ctx context.Context, eventID string) ([]byte, error)
	ExportSeries(ctx context.Context, seriesID string) ([]byte, error)
}

// CalendarEncoder renders events as an iCalendar document.
type CalendarEncoder interface {
	Encode(events []*Event) ([]byte, error)
}
