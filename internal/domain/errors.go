package domain

import "errors"

// Generic sentinel errors shared by repositories and services.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

// Reason is the machine-readable outcome code of a registration or booking
// decision. The empty Reason means the action succeeded.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonIneligible         Reason = "ineligible"
	ReasonRegistrationClosed Reason = "registration-closed"
	ReasonAlreadyInEvent     Reason = "already-in-event"
	ReasonNotFound           Reason = "not-found"
	ReasonBookingConflict    Reason = "booking-conflict"
	ReasonInvalidRecurrence  Reason = "invalid-recurrence"
	ReasonForbidden          Reason = "forbidden"
	ReasonNotPending         Reason = "not-pending"
	ReasonNotWaitlisted      Reason = "not-waitlisted"
	ReasonEventFull          Reason = "event-full"
)

// Sentinel errors for the failing reasons. ReasonAlreadyInEvent has none: it
// is reported as a successful no-op.
var (
	ErrIneligible         = &ReasonError{Reason: ReasonIneligible}
	ErrRegistrationClosed = &ReasonError{Reason: ReasonRegistrationClosed}
	ErrBookingConflict    = &ReasonError{Reason: ReasonBookingConflict}
	ErrInvalidRecurrence  = &ReasonError{Reason: ReasonInvalidRecurrence}
	ErrNotPending         = &ReasonError{Reason: ReasonNotPending}
	ErrNotWaitlisted      = &ReasonError{Reason: ReasonNotWaitlisted}
	ErrEventFull          = &ReasonError{Reason: ReasonEventFull}
)

// ReasonError carries a decision Reason through the error chain.
type ReasonError struct {
	Reason Reason
}

func (e *ReasonError) Error() string {
	return string(e.Reason)
}

// Is matches any ReasonError with the same Reason, so wrapped copies compare
// equal to the package sentinels.
func (e *ReasonError) Is(target error) bool {
	t, ok := target.(*ReasonError)
	return ok && t.Reason == e.Reason
}

// ErrorForReason converts a failing decision reason into the matching error.
// It returns nil for ReasonNone and ReasonAlreadyInEvent.
func ErrorForReason(r Reason) error {
	switch r {
	case ReasonNone, ReasonAlreadyInEvent:
		return nil
	case ReasonNotFound:
		return ErrNotFound
	case ReasonForbidden:
		return ErrForbidden
	default:
		return &ReasonError{Reason: r}
	}
}

// ReasonOf extracts the decision reason from err. Generic sentinels map to
// their reason codes; unknown errors yield ReasonNone.
func ReasonOf(err error) Reason {
	var re *ReasonError
	switch {
	case err == nil:
		return ReasonNone
	case errors.As(err, &re):
		return re.Reason
	case errors.Is(err, ErrNotFound):
		return ReasonNotFound
	case errors.Is(err, ErrForbidden):
		return ReasonForbidden
	}
	return ReasonNone
}
