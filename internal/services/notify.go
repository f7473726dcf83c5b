package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"begegnungscafe/internal/domain"
)

const dateTimeLayout = "02.01.2006 15:04"

type notificationService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
	loc      *time.Location
}

// NewNotificationService returns a NotificationService that renders the
// decision templates and sends them through mailer. Times are shown in loc.
func NewNotificationService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger, loc *time.Location) domain.NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &notificationService{mailer: mailer, renderer: renderer, logger: logger, loc: loc}
}

// RegistrationDecided tells user the outcome of an approve, reject or
// promote on event.
func (s *notificationService) RegistrationDecided(ctx context.Context, user *domain.User, event *domain.Event, state domain.RegistrationState) error {
	if user == nil || event == nil {
		return errors.New("registration decision: user and event are required")
	}
	data := &domain.RegistrationDecisionEmailData{
		Email:       user.Email,
		DisplayName: user.DisplayName,
		EventTitle:  event.Title,
		EventStart:  event.DateTimeStart.In(s.loc).Format(dateTimeLayout),
		State:       state,
		Approved:    state == domain.StateJoined,
	}
	return s.send(ctx, "registration_decision", user.Email, data)
}

// BookingDecided tells user that an admin approved or rejected booking.
func (s *notificationService) BookingDecided(ctx context.Context, user *domain.User, room *domain.Room, booking *domain.RoomBooking) error {
	if user == nil || room == nil || booking == nil {
		return errors.New("booking decision: user, room and booking are required")
	}
	data := &domain.BookingDecisionEmailData{
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		BookingTitle: booking.Title,
		RoomName:     room.Name,
		Start:        booking.StartTime.In(s.loc).Format(dateTimeLayout),
		End:          booking.EndTime.In(s.loc).Format(dateTimeLayout),
		Approved:     booking.Status == domain.BookingApproved,
	}
	if booking.AdminNote != nil {
		data.AdminNote = *booking.AdminNote
	}
	return s.send(ctx, "booking_decision", user.Email, data)
}

func (s *notificationService) send(ctx context.Context, template, to string, data any) error {
	if to == "" {
		return fmt.Errorf("%s: recipient has no email address", template)
	}
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("render %s template: %w", template, err)
	}
	if err := s.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send %s email: %w", template, err)
	}
	s.logger.DebugContext(ctx, "email sent", "template", template, "to", to)
	return nil
}
