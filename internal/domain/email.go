package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationDecisionEmailData holds data for the "registration_decision" email.
type RegistrationDecisionEmailData struct {
	Email       string
	DisplayName string
	EventTitle  string
	EventStart  string
	State       RegistrationState
	Approved    bool
}

// BookingDecisionEmailData holds data for the "booking_decision" email.
type BookingDecisionEmailData struct {
	Email        string
	DisplayName  string
	BookingTitle string
	RoomName     string
	Start        string
	End          string
	Approved     bool
	AdminNote    string
}

// NotificationService tells members about organizer and admin decisions.
type NotificationService interface {
	RegistrationDecided(ctx context.Context, user *User, event *Event, state RegistrationState) error
	BookingDecided(ctx context.Context, user *User, room *Room, booking *RoomBooking) error
}
