package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"begegnungscafe/internal/domain"
	"begegnungscafe/internal/registration"
)

type registrationService struct {
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	notifier       domain.NotificationService
	logger         *slog.Logger
	loc            *time.Location
	contextTimeout time.Duration
	now            func() time.Time
}

// NewRegistrationService returns a RegistrationService that applies the
// registration rules to stored events. Each transition runs while the event
// row is locked, so capacity decisions never act on a stale participant list.
func NewRegistrationService(
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	notifier domain.NotificationService,
	logger *slog.Logger,
	loc *time.Location,
	timeout time.Duration,
) domain.RegistrationService {
	if loc == nil {
		loc = time.UTC
	}
	return &registrationService{
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		logger:         logger,
		loc:            loc,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *registrationService) Join(ctx context.Context, eventID, userID string) (*domain.RegistrationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now().In(s.loc)
	outcome, _, err := s.transition(ctx, eventID, userID, func(ev *domain.Event) registration.Result {
		return registration.Join(user, ev, now)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration join", "event_id", eventID, "user_id", userID, "state", outcome.State, "changed", outcome.Changed)
	return outcome, nil
}

func (s *registrationService) Leave(ctx context.Context, eventID, userID string) (*domain.RegistrationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	outcome, _, err := s.transition(ctx, eventID, userID, func(ev *domain.Event) registration.Result {
		return registration.Leave(ev, userID)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (s *registrationService) Approve(ctx context.Context, eventID, actorID, userID string) (*domain.RegistrationOutcome, error) {
	return s.decide(ctx, eventID, actorID, userID, registration.Approve)
}

func (s *registrationService) Reject(ctx context.Context, eventID, actorID, userID string) (*domain.RegistrationOutcome, error) {
	return s.decide(ctx, eventID, actorID, userID, registration.Reject)
}

func (s *registrationService) Promote(ctx context.Context, eventID, actorID, userID string) (*domain.RegistrationOutcome, error) {
	return s.decide(ctx, eventID, actorID, userID, registration.Promote)
}

func (s *registrationService) GetState(ctx context.Context, eventID, userID string) (*domain.RegistrationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &domain.RegistrationOutcome{
		EventID: eventID,
		UserID:  userID,
		State:   ev.StateOf(userID),
	}, nil
}

type decision func(actor *domain.User, event *domain.Event, userID string) registration.Result

// decide runs an organizer decision and tells the affected member about it.
func (s *registrationService) decide(ctx context.Context, eventID, actorID, userID string, fn decision) (*domain.RegistrationOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	outcome, ev, err := s.transition(ctx, eventID, userID, func(ev *domain.Event) registration.Result {
		return fn(actor, ev, userID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "registration decision", "event_id", eventID, "actor_id", actorID, "user_id", userID, "state", outcome.State)
	if outcome.Changed {
		s.notify(ctx, ev, userID, outcome.State)
	}
	return outcome, nil
}

// transition loads the event under lock, applies decide and persists the
// membership when it changed. A failing reason is returned as its domain
// error and nothing is written.
func (s *registrationService) transition(ctx context.Context, eventID, userID string, decide func(*domain.Event) registration.Result) (*domain.RegistrationOutcome, *domain.Event, error) {
	var (
		res   registration.Result
		event *domain.Event
	)
	err := s.eventRepo.WithEventLock(ctx, eventID, func(ctx context.Context, tx domain.EventRepository, ev *domain.Event) error {
		res = decide(ev)
		if err := domain.ErrorForReason(res.Reason); err != nil {
			return err
		}
		if res.Changed {
			if err := tx.SaveMembership(ctx, ev.ID, res.Membership); err != nil {
				return fmt.Errorf("save membership: %w", err)
			}
			ev.Membership = res.Membership
		}
		event = ev
		return nil
	})
	if err != nil {
		if domain.ReasonOf(err) == domain.ReasonNone {
			return nil, nil, fmt.Errorf("registration transition: %w", err)
		}
		return nil, nil, err
	}
	return &domain.RegistrationOutcome{
		EventID: eventID,
		UserID:  userID,
		State:   res.State,
		Changed: res.Changed,
		Reason:  res.Reason,
	}, event, nil
}

func (s *registrationService) notify(ctx context.Context, ev *domain.Event, userID string, state domain.RegistrationState) {
	if s.notifier == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "user_id", userID, "err", err)
		return
	}
	if err := s.notifier.RegistrationDecided(ctx, user, ev, state); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "event_id", ev.ID, "user_id", userID, "err", err)
	}
}

func (s *registrationService) getUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
