package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"begegnungscafe/internal/domain"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

func ptr[T any](v T) *T { return &v }

type fakeUserRepo struct {
	users map[string]*domain.User
	err   error
}

func newUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[string]*domain.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

// fakeEventRepo keeps events in memory. WithEventLock serializes callers on
// one mutex the way the row lock does.
type fakeEventRepo struct {
	mu     sync.Mutex
	lockMu sync.Mutex

	events  map[string]*domain.Event
	err     error
	saveErr error

	created    []*domain.Event
	series     []*domain.Event
	saves      int
	lastPatch  *domain.EventPatch
	lastFilter domain.EventFilter
	nextID     int
}

func newEventRepo(events ...*domain.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: map[string]*domain.Event{}}
	for _, e := range events {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeEventRepo) Create(_ context.Context, e *domain.Event) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = fmt.Sprintf("ev-%d", r.nextID)
	r.created = append(r.created, e)
	r.events[e.ID] = e
	return nil
}

func (r *fakeEventRepo) CreateSeries(ctx context.Context, events []*domain.Event) error {
	if r.err != nil {
		return r.err
	}
	for _, e := range events {
		if err := r.Create(ctx, e); err != nil {
			return err
		}
	}
	r.series = append(r.series, events...)
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	cp.Membership = e.Membership.Clone()
	return &cp, nil
}

func (r *fakeEventRepo) List(_ context.Context, filter domain.EventFilter, _ domain.PaginationParams) ([]*domain.Event, int, error) {
	if r.err != nil {
		return nil, 0, r.err
	}
	r.lastFilter = filter
	var out []*domain.Event
	for _, e := range r.events {
		if filter.Category == "" || e.Category == filter.Category {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (r *fakeEventRepo) ListBySeriesID(_ context.Context, seriesID string) ([]*domain.Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []*domain.Event
	for _, e := range r.events {
		if e.SeriesID != nil && *e.SeriesID == seriesID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) Update(_ context.Context, id string, patch domain.EventPatch) (*domain.Event, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.lastPatch = &patch
	updated := patch.Apply(*e)
	r.events[id] = &updated
	return &updated, nil
}

func (r *fakeEventRepo) SaveMembership(_ context.Context, eventID string, m domain.Membership) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	e.Membership = m.Clone()
	r.saves++
	return nil
}

func (r *fakeEventRepo) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx domain.EventRepository, event *domain.Event) error) error {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	e, err := r.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return fn(ctx, r, e)
}

func (r *fakeEventRepo) membership(id string) domain.Membership {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[id].Membership.Clone()
}

type fakeRoomRepo struct {
	rooms map[string]*domain.Room
	err   error
}

func newRoomRepo(rooms ...*domain.Room) *fakeRoomRepo {
	r := &fakeRoomRepo{rooms: map[string]*domain.Room{}}
	for _, room := range rooms {
		r.rooms[room.ID] = room
	}
	return r
}

func (r *fakeRoomRepo) GetByID(_ context.Context, id string) (*domain.Room, error) {
	if r.err != nil {
		return nil, r.err
	}
	room, ok := r.rooms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return room, nil
}

func (r *fakeRoomRepo) List(context.Context) ([]*domain.Room, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*domain.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, room)
	}
	slices.SortFunc(out, func(a, b *domain.Room) int {
		if a.Name < b.Name {
			return -1
		}
		return 1
	})
	return out, nil
}

type fakeBookingRepo struct {
	mu     sync.Mutex
	lockMu sync.Mutex

	bookings   map[string]*domain.RoomBooking
	err        error
	locks      int
	lastFilter domain.BookingFilter
	nextID     int
}

func newBookingRepo(bookings ...*domain.RoomBooking) *fakeBookingRepo {
	r := &fakeBookingRepo{bookings: map[string]*domain.RoomBooking{}}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingRepo) Create(_ context.Context, b *domain.RoomBooking) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = fmt.Sprintf("b-new-%d", r.nextID)
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *fakeBookingRepo) GetByID(_ context.Context, id string) (*domain.RoomBooking, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *fakeBookingRepo) List(_ context.Context, filter domain.BookingFilter) ([]*domain.RoomBooking, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.lastFilter = filter
	var out []*domain.RoomBooking
	for _, b := range r.bookings {
		if filter.RequestedBy != "" && b.RequestedBy != filter.RequestedBy {
			continue
		}
		if filter.RoomID != "" && b.RoomID != filter.RoomID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (r *fakeBookingRepo) ListByRoom(_ context.Context, roomID string) ([]*domain.RoomBooking, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.RoomBooking
	for _, b := range r.bookings {
		if b.RoomID == roomID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) UpdateInterval(_ context.Context, b *domain.RoomBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[b.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.Title, stored.StartTime, stored.EndTime = b.Title, b.StartTime, b.EndTime
	return nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id string, status domain.BookingStatus, note *string) (*domain.RoomBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	stored.Status = status
	if note != nil {
		stored.AdminNote = note
	}
	cp := *stored
	return &cp, nil
}

func (r *fakeBookingRepo) WithRoomLock(ctx context.Context, _ string, fn func(ctx context.Context, tx domain.BookingRepository) error) error {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()
	r.locks++
	return fn(ctx, r)
}

type registrationNotice struct {
	userID string
	state  domain.RegistrationState
}

type fakeNotifier struct {
	mu            sync.Mutex
	registrations []registrationNotice
	bookings      []*domain.RoomBooking
	err           error
}

func (n *fakeNotifier) RegistrationDecided(_ context.Context, user *domain.User, _ *domain.Event, state domain.RegistrationState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registrations = append(n.registrations, registrationNotice{userID: user.ID, state: state})
	return n.err
}

func (n *fakeNotifier) BookingDecided(_ context.Context, _ *domain.User, _ *domain.Room, b *domain.RoomBooking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bookings = append(n.bookings, b)
	return n.err
}

type fakeCalendar struct {
	encoded [][]*domain.Event
	err     error
}

func (c *fakeCalendar) Encode(events []*domain.Event) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.encoded = append(c.encoded, events)
	return []byte(fmt.Sprintf("BEGIN:VCALENDAR %d", len(events))), nil
}
