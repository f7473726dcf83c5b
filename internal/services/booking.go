package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"begegnungscafe/internal/booking"
	"begegnungscafe/internal/domain"

	"golang.org/x/sync/errgroup"
)

type bookingService struct {
	roomRepo       domain.RoomRepository
	bookingRepo    domain.BookingRepository
	userRepo       domain.UserRepository
	notifier       domain.NotificationService
	logger         *slog.Logger
	contextTimeout time.Duration
	now            func() time.Time
}

// NewBookingService returns a BookingService. Every write that can create an
// overlap checks availability while holding the room lock.
func NewBookingService(
	roomRepo domain.RoomRepository,
	bookingRepo domain.BookingRepository,
	userRepo domain.UserRepository,
	notifier domain.NotificationService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.BookingService {
	return &bookingService{
		roomRepo:       roomRepo,
		bookingRepo:    bookingRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
}

func (s *bookingService) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	rooms, err := s.roomRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (s *bookingService) CheckAvailability(ctx context.Context, roomID string, start, end time.Time, excludeID string) (*domain.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := validateInterval(start, end); err != nil {
		return nil, err
	}

	var existing []*domain.RoomBooking
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.getRoom(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = s.bookingRepo.ListByRoom(gctx, roomID)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	conflicts := booking.Conflicts(roomID, start, end, existing, excludeID)
	if conflicts == nil {
		conflicts = []domain.RoomBooking{}
	}
	return &domain.Availability{
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
		Available: len(conflicts) == 0,
		Conflicts: conflicts,
	}, nil
}

func (s *bookingService) RequestBooking(ctx context.Context, userID string, input domain.CreateBookingInput) (*domain.RoomBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if err := validateInterval(input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	var (
		user *domain.User
		room *domain.Room
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.userRepo.GetByID(gctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrForbidden
			}
			return fmt.Errorf("get user: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		room, err = s.getRoom(gctx, input.RoomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if room.NotBookable || !user.MayBookRoom(room.ID) {
		return nil, domain.ErrForbidden
	}

	now := s.now()
	b := &domain.RoomBooking{
		RoomID:      room.ID,
		RequestedBy: user.ID,
		Title:       title,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Status:      domain.BookingRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.bookingRepo.WithRoomLock(ctx, room.ID, func(ctx context.Context, tx domain.BookingRepository) error {
		existing, err := tx.ListByRoom(ctx, room.ID)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		if !booking.IsAvailable(room.ID, b.StartTime, b.EndTime, existing, "") {
			return domain.ErrBookingConflict
		}
		return tx.Create(ctx, b)
	})
	if err != nil {
		if errors.Is(err, domain.ErrBookingConflict) {
			s.logger.InfoContext(ctx, "booking conflict", "room_id", room.ID, "user_id", userID)
			return nil, domain.ErrBookingConflict
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}
	return b, nil
}

// UpdateBooking lets the requester (or an admin) change title or time of a
// booking. A moved booking is re-checked without its own slot; on conflict
// the stored booking keeps its previous values.
func (s *bookingService) UpdateBooking(ctx context.Context, userID, bookingID string, patch domain.BookingPatch) (*domain.RoomBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if patch.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	current, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.RequestedBy != user.ID && !user.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	updated := patch.Apply(*current)
	updated.Title = strings.TrimSpace(updated.Title)
	if updated.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if err := validateInterval(updated.StartTime, updated.EndTime); err != nil {
		return nil, err
	}

	if !patch.ChangesInterval() || !updated.Status.Blocks() {
		if err := s.bookingRepo.UpdateInterval(ctx, &updated); err != nil {
			return nil, s.writeErr("update booking", err)
		}
		return &updated, nil
	}

	err = s.bookingRepo.WithRoomLock(ctx, updated.RoomID, func(ctx context.Context, tx domain.BookingRepository) error {
		existing, err := tx.ListByRoom(ctx, updated.RoomID)
		if err != nil {
			return fmt.Errorf("list bookings: %w", err)
		}
		if !booking.IsAvailable(updated.RoomID, updated.StartTime, updated.EndTime, existing, updated.ID) {
			return domain.ErrBookingConflict
		}
		return tx.UpdateInterval(ctx, &updated)
	})
	if err != nil {
		return nil, s.writeErr("update booking", err)
	}
	return &updated, nil
}

func (s *bookingService) ApproveBooking(ctx context.Context, adminID, bookingID string, note *string) (*domain.RoomBooking, error) {
	return s.setStatus(ctx, adminID, bookingID, domain.BookingApproved, note)
}

func (s *bookingService) RejectBooking(ctx context.Context, adminID, bookingID string, note *string) (*domain.RoomBooking, error) {
	return s.setStatus(ctx, adminID, bookingID, domain.BookingRejected, note)
}

func (s *bookingService) setStatus(ctx context.Context, adminID, bookingID string, status domain.BookingStatus, note *string) (*domain.RoomBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	admin, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !admin.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	current, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var updated *domain.RoomBooking
	if status.Blocks() && !current.Status.Blocks() {
		// A rejected slot may have been taken in the meantime.
		err = s.bookingRepo.WithRoomLock(ctx, current.RoomID, func(ctx context.Context, tx domain.BookingRepository) error {
			existing, err := tx.ListByRoom(ctx, current.RoomID)
			if err != nil {
				return fmt.Errorf("list bookings: %w", err)
			}
			if !booking.IsAvailable(current.RoomID, current.StartTime, current.EndTime, existing, current.ID) {
				return domain.ErrBookingConflict
			}
			updated, err = tx.UpdateStatus(ctx, current.ID, status, note)
			return err
		})
	} else {
		updated, err = s.bookingRepo.UpdateStatus(ctx, current.ID, status, note)
	}
	if err != nil {
		return nil, s.writeErr("update booking status", err)
	}

	s.logger.InfoContext(ctx, "booking decision", "booking_id", updated.ID, "status", updated.Status, "admin_id", adminID)
	if current.Status != updated.Status {
		s.notify(ctx, updated)
	}
	return updated, nil
}

// ListBookings returns bookings matching filter. Members without admin rights
// see their own bookings unless they ask for one room's occupancy.
func (s *bookingService) ListBookings(ctx context.Context, userID string, filter domain.BookingFilter) ([]*domain.RoomBooking, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsAdmin() && filter.RoomID == "" {
		filter.RequestedBy = user.ID
	}
	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) notify(ctx context.Context, b *domain.RoomBooking) {
	if s.notifier == nil {
		return
	}
	var (
		user *domain.User
		room *domain.Room
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.userRepo.GetByID(gctx, b.RequestedBy)
		return err
	})
	g.Go(func() error {
		var err error
		room, err = s.roomRepo.GetByID(gctx, b.RoomID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "notification skipped", "booking_id", b.ID, "err", err)
		return
	}
	if err := s.notifier.BookingDecided(ctx, user, room, b); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "booking_id", b.ID, "err", err)
	}
}

func (s *bookingService) getRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

func (s *bookingService) getBooking(ctx context.Context, id string) (*domain.RoomBooking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (s *bookingService) writeErr(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrBookingConflict):
		return domain.ErrBookingConflict
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func validateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return fmt.Errorf("%w: start and end are required", domain.ErrInvalidInput)
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end must be after start", domain.ErrInvalidInput)
	}
	return nil
}
