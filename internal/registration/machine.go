package registration

import (
	"slices"
	"time"

	"begegnungscafe/internal/domain"
)

// Result is the outcome of one transition. Membership is always a fresh value
// (a copy of the input when nothing changed) and is safe to persist.
type Result struct {
	Membership domain.Membership
	State      domain.RegistrationState
	Changed    bool
	Reason     domain.Reason
}

// OK reports whether the action succeeded. An already-in-event join counts
// as success.
func (r Result) OK() bool {
	return r.Reason == domain.ReasonNone || r.Reason == domain.ReasonAlreadyInEvent
}

func unchanged(event *domain.Event, state domain.RegistrationState, reason domain.Reason) Result {
	var m domain.Membership
	if event != nil {
		m = event.Membership.Clone()
	}
	return Result{Membership: m, State: state, Reason: reason}
}

// Join places user into the event. Eligibility is evaluated at now. Instant
// events admit directly until maxParticipants is reached and append to the
// waitlist afterwards; request events queue the user for approval. Joining
// while already in any set is a no-op reported as ReasonAlreadyInEvent.
func Join(user *domain.User, event *domain.Event, now time.Time) Result {
	if user == nil || event == nil {
		return unchanged(event, domain.StateNone, domain.ReasonNotFound)
	}
	if current := event.StateOf(user.ID); current != domain.StateNone {
		return unchanged(event, current, domain.ReasonAlreadyInEvent)
	}
	if reason := Check(user, event, now); reason != domain.ReasonNone {
		return unchanged(event, domain.StateNone, reason)
	}

	m := event.Membership.Clone()
	var state domain.RegistrationState
	switch {
	case event.RegistrationMode == domain.RegistrationRequest:
		m.PendingParticipants = append(m.PendingParticipants, user.ID)
		state = domain.StatePending
	case event.AtCapacity():
		m.Waitlist = append(m.Waitlist, user.ID)
		state = domain.StateWaitlisted
	default:
		m.Participants = append(m.Participants, user.ID)
		state = domain.StateJoined
	}
	return Result{Membership: m, State: state, Changed: true}
}

// Leave removes userID from whichever set holds it. Leaving a seat does not
// promote anyone from the waitlist. Leaving an event one is not part of is a
// no-op.
func Leave(event *domain.Event, userID string) Result {
	if event == nil || userID == "" {
		return unchanged(event, domain.StateNone, domain.ReasonNotFound)
	}
	if event.StateOf(userID) == domain.StateNone {
		return unchanged(event, domain.StateNone, domain.ReasonNone)
	}
	m := event.Membership.Clone()
	m.Participants = without(m.Participants, userID)
	m.PendingParticipants = without(m.PendingParticipants, userID)
	m.Waitlist = without(m.Waitlist, userID)
	return Result{Membership: m, State: domain.StateNone, Changed: true}
}

// Approve moves a pending userID into the participants. Only callers passing
// CanEdit may approve. Capacity is not checked: approval is an explicit
// organizer decision.
func Approve(actor *domain.User, event *domain.Event, userID string) Result {
	if r, ok := guardPending(actor, event, userID); !ok {
		return r
	}
	m := event.Membership.Clone()
	m.PendingParticipants = without(m.PendingParticipants, userID)
	m.Participants = append(m.Participants, userID)
	return Result{Membership: m, State: domain.StateJoined, Changed: true}
}

// Reject drops a pending userID from the event.
func Reject(actor *domain.User, event *domain.Event, userID string) Result {
	if r, ok := guardPending(actor, event, userID); !ok {
		return r
	}
	m := event.Membership.Clone()
	m.PendingParticipants = without(m.PendingParticipants, userID)
	return Result{Membership: m, State: domain.StateNone, Changed: true}
}

// Promote moves a waitlisted userID into the participants on explicit
// organizer request. It fails with ReasonEventFull while the event is at
// capacity.
func Promote(actor *domain.User, event *domain.Event, userID string) Result {
	if actor == nil || event == nil || userID == "" {
		return unchanged(event, domain.StateNone, domain.ReasonNotFound)
	}
	current := event.StateOf(userID)
	if !CanEdit(actor, event) {
		return unchanged(event, current, domain.ReasonForbidden)
	}
	if current != domain.StateWaitlisted {
		return unchanged(event, current, domain.ReasonNotWaitlisted)
	}
	if event.AtCapacity() {
		return unchanged(event, current, domain.ReasonEventFull)
	}
	m := event.Membership.Clone()
	m.Waitlist = without(m.Waitlist, userID)
	m.Participants = append(m.Participants, userID)
	return Result{Membership: m, State: domain.StateJoined, Changed: true}
}

func guardPending(actor *domain.User, event *domain.Event, userID string) (Result, bool) {
	if actor == nil || event == nil || userID == "" {
		return unchanged(event, domain.StateNone, domain.ReasonNotFound), false
	}
	current := event.StateOf(userID)
	if !CanEdit(actor, event) {
		return unchanged(event, current, domain.ReasonForbidden), false
	}
	if current != domain.StatePending {
		return unchanged(event, current, domain.ReasonNotPending), false
	}
	return Result{}, true
}

func without(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
