package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"begegnungscafe/internal/domain"
	"begegnungscafe/internal/recurrence"
	"begegnungscafe/internal/registration"

	"github.com/google/uuid"
)

type eventService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	calendar       domain.CalendarEncoder
	logger         *slog.Logger
	loc            *time.Location
	contextTimeout time.Duration
	now            func() time.Time
	newSeriesID    func() string
}

// NewEventService returns an EventService. loc is the zone recurrence is
// stepped in; it defaults to UTC.
func NewEventService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	calendar domain.CalendarEncoder,
	logger *slog.Logger,
	loc *time.Location,
	timeout time.Duration,
) domain.EventService {
	if loc == nil {
		loc = time.UTC
	}
	return &eventService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		calendar:       calendar,
		logger:         logger,
		loc:            loc,
		contextTimeout: timeout,
		now:            time.Now,
		newSeriesID:    uuid.NewString,
	}
}

// CreateEvent stores a single event or, when recurrence asks for it, every
// occurrence of a series in one batch. All occurrences share one series id
// and the same descriptive recurrence rule.
func (s *eventService) CreateEvent(ctx context.Context, actorID string, input domain.CreateEventInput, rec domain.RecurrenceRequest) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !actor.IsOrganizer() || !actor.MayUseCategory(input.Category) {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	base := domain.Event{
		Title:              strings.TrimSpace(input.Title),
		Description:        input.Description,
		Location:           input.Location,
		Category:           strings.TrimSpace(input.Category),
		CreatedBy:          actor.ID,
		DateTimeStart:      input.DateTimeStart,
		DateTimeEnd:        input.DateTimeEnd,
		MaxParticipants:    input.MaxParticipants,
		RegistrationMode:   input.RegistrationMode,
		IsRegistrationOpen: input.IsRegistrationOpen,
		GenderRestriction:  input.GenderRestriction,
		MinAge:             input.MinAge,
		MaxAge:             input.MaxAge,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if base.RegistrationMode == "" {
		base.RegistrationMode = domain.RegistrationInstant
	}
	if base.GenderRestriction == "" {
		base.GenderRestriction = domain.GenderRestrictionNone
	}
	if err := validateEvent(&base); err != nil {
		return nil, err
	}

	series, err := recurrence.Expand(base.DateTimeStart, base.DateTimeEnd, rec.Kind, rec.End, s.loc)
	if err != nil {
		return nil, err
	}

	if series.Kind() == domain.RecurrenceNone {
		ev := base
		ev.Membership = base.Membership.Clone()
		if err := s.eventRepo.Create(ctx, &ev); err != nil {
			return nil, fmt.Errorf("create event: %w", err)
		}
		return []*domain.Event{&ev}, nil
	}

	seriesID := s.newSeriesID()
	rule := recurrence.Rule(rec.Kind, base.DateTimeStart, rec.End, s.loc)
	events := make([]*domain.Event, 0, recurrence.MaxOccurrences)
	for occ := range series.All() {
		ev := base
		ev.Membership = base.Membership.Clone()
		ev.DateTimeStart = occ.Start
		ev.DateTimeEnd = occ.End
		ev.SeriesID = &seriesID
		ev.RecurrenceRule = &rule
		events = append(events, &ev)
	}
	if len(events) == 0 {
		// The end date lies before the first occurrence.
		return nil, domain.ErrInvalidRecurrence
	}
	if series.Truncated() {
		s.logger.WarnContext(ctx, "recurrence truncated",
			"series_id", seriesID, "kind", rec.Kind, "cap", recurrence.MaxOccurrences, "actor_id", actorID)
	}
	if err := s.eventRepo.CreateSeries(ctx, events); err != nil {
		return nil, fmt.Errorf("create series: %w", err)
	}
	s.logger.InfoContext(ctx, "series created", "series_id", seriesID, "occurrences", len(events))
	return events, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ev, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (s *eventService) ListEvents(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, 0, fmt.Errorf("%w: to before from", domain.ErrInvalidInput)
	}
	events, total, err := s.eventRepo.List(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	return events, total, nil
}

// UpdateEvent applies patch for an actor allowed to edit the event. The
// change affects this occurrence only; siblings of a series are untouched.
func (s *eventService) UpdateEvent(ctx context.Context, actorID, id string, patch domain.EventPatch) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	actor, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	ev, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !registration.CanEdit(actor, ev) {
		return nil, domain.ErrForbidden
	}
	if patch.Category != nil && *patch.Category != ev.Category && !actor.MayUseCategory(*patch.Category) {
		return nil, domain.ErrForbidden
	}
	if patch.IsEmpty() {
		return ev, nil
	}
	merged := patch.Apply(*ev)
	if err := validateEvent(&merged); err != nil {
		return nil, err
	}

	updated, err := s.eventRepo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) ExportCalendar(ctx context.Context, eventID string) ([]byte, error) {
	ev, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	data, err := s.calendar.Encode([]*domain.Event{ev})
	if err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return data, nil
}

func (s *eventService) ExportSeries(ctx context.Context, seriesID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	if len(events) == 0 {
		return nil, domain.ErrNotFound
	}
	data, err := s.calendar.Encode(events)
	if err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return data, nil
}

func validateEvent(e *domain.Event) error {
	var problems []string
	if strings.TrimSpace(e.Title) == "" {
		problems = append(problems, "title is required")
	}
	if strings.TrimSpace(e.Category) == "" {
		problems = append(problems, "category is required")
	}
	if e.DateTimeStart.IsZero() || !e.DateTimeEnd.After(e.DateTimeStart) {
		problems = append(problems, "date_time_end must be after date_time_start")
	}
	if e.MaxParticipants != nil && *e.MaxParticipants < 0 {
		problems = append(problems, "max_participants must not be negative")
	}
	if e.MinAge != nil && e.MaxAge != nil && *e.MinAge > *e.MaxAge {
		problems = append(problems, "min_age must not exceed max_age")
	}
	switch e.RegistrationMode {
	case domain.RegistrationInstant, domain.RegistrationRequest:
	default:
		problems = append(problems, "registration_mode must be instant or request")
	}
	switch e.GenderRestriction {
	case domain.GenderRestrictionNone, domain.GenderRestrictionMale, domain.GenderRestrictionFemale:
	default:
		problems = append(problems, "gender_restriction must be none, male or female")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}
