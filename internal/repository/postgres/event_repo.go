package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"begegnungscafe/internal/domain"

	"github.com/lib/pq"
)

const eventColumns = `id, title, description, location, category, created_by, date_time_start, date_time_end,
	max_participants, registration_mode, is_registration_open, gender_restriction, min_age, max_age,
	series_id, recurrence_rule, participants, pending_participants, waitlist, created_at, updated_at`

const insertEvent = `
		INSERT INTO events (title, description, location, category, created_by, date_time_start, date_time_end,
			max_participants, registration_mode, is_registration_open, gender_restriction, min_age, max_age,
			series_id, recurrence_rule, participants, pending_participants, waitlist, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id
	`

type eventRepository struct {
	DB     *sql.DB
	q      querier
	locked bool
}

// NewEventRepository returns a domain.EventRepository implemented with Postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db, q: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var maxParticipants, minAge, maxAge sql.NullInt32
	var seriesID, rule sql.NullString
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Category, &e.CreatedBy, &e.DateTimeStart, &e.DateTimeEnd,
		&maxParticipants, &e.RegistrationMode, &e.IsRegistrationOpen, &e.GenderRestriction, &minAge, &maxAge,
		&seriesID, &rule, pq.Array(&e.Participants), pq.Array(&e.PendingParticipants), pq.Array(&e.Waitlist),
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.MaxParticipants = nullIntPtr(maxParticipants)
	e.MinAge = nullIntPtr(minAge)
	e.MaxAge = nullIntPtr(maxAge)
	e.SeriesID = nullStringPtr(seriesID)
	e.RecurrenceRule = nullStringPtr(rule)
	return e, nil
}

func insertEventArgs(e *domain.Event) []any {
	m := e.Membership.Clone()
	return []any{
		e.Title, e.Description, e.Location, e.Category, e.CreatedBy, e.DateTimeStart, e.DateTimeEnd,
		intArg(e.MaxParticipants), string(e.RegistrationMode), e.IsRegistrationOpen, string(e.GenderRestriction),
		intArg(e.MinAge), intArg(e.MaxAge), stringArg(e.SeriesID), stringArg(e.RecurrenceRule),
		pq.Array(m.Participants), pq.Array(m.PendingParticipants), pq.Array(m.Waitlist),
		e.CreatedAt, e.UpdatedAt,
	}
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	return r.q.QueryRowContext(ctx, insertEvent, insertEventArgs(e)...).Scan(&e.ID)
}

// CreateSeries inserts all occurrences in one transaction; either every
// occurrence is stored or none is.
func (r *eventRepository) CreateSeries(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertEvent)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range events {
			if err := stmt.QueryRowContext(ctx, insertEventArgs(e)...).Scan(&e.ID); err != nil {
				return fmt.Errorf("insert occurrence %d: %w", i, err)
			}
		}
		return nil
	})
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func eventWhere(filter domain.EventFilter) (string, []any) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.SeriesID != "" {
		add("series_id = $%d", filter.SeriesID)
	}
	if filter.From != nil {
		add("date_time_end > $%d", *filter.From)
	}
	if filter.To != nil {
		add("date_time_start < $%d", *filter.To)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns one page of events ordered by start time together with the
// total number of matching events.
func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where, args := eventWhere(filter)

	var total int
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + eventColumns + ` FROM events` + where + ` ORDER BY date_time_start, id`
	if limit := params.Limit(); limit > 0 {
		args = append(args, limit, params.Offset())
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}
	events, err := r.queryEvents(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) ListBySeriesID(ctx context.Context, seriesID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE series_id = $1 ORDER BY date_time_start`
	return r.queryEvents(ctx, query, seriesID)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, patch domain.EventPatch) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Location != nil {
		set("location", *patch.Location)
	}
	if patch.Category != nil {
		set("category", *patch.Category)
	}
	if patch.DateTimeStart != nil {
		set("date_time_start", *patch.DateTimeStart)
	}
	if patch.DateTimeEnd != nil {
		set("date_time_end", *patch.DateTimeEnd)
	}
	if patch.MaxParticipants.Set {
		set("max_participants", intArg(patch.MaxParticipants.Value))
	}
	if patch.RegistrationMode != nil {
		set("registration_mode", string(*patch.RegistrationMode))
	}
	if patch.IsRegistrationOpen != nil {
		set("is_registration_open", *patch.IsRegistrationOpen)
	}
	if patch.GenderRestriction != nil {
		set("gender_restriction", string(*patch.GenderRestriction))
	}
	if patch.MinAge.Set {
		set("min_age", intArg(patch.MinAge.Value))
	}
	if patch.MaxAge.Set {
		set("max_age", intArg(patch.MaxAge.Value))
	}
	if len(args) == 0 {
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), len(args), eventColumns)
	e, err := scanEvent(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) SaveMembership(ctx context.Context, eventID string, m domain.Membership) error {
	m = m.Clone()
	query := `
		UPDATE events
		SET participants = $1, pending_participants = $2, waitlist = $3, updated_at = NOW()
		WHERE id = $4
	`
	result, err := r.q.ExecContext(ctx, query, pq.Array(m.Participants), pq.Array(m.PendingParticipants), pq.Array(m.Waitlist), eventID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// WithEventLock loads the event with SELECT ... FOR UPDATE and runs fn in the
// same transaction, so concurrent registrations for one event are applied
// one after another. The transaction commits when fn returns nil.
func (r *eventRepository) WithEventLock(ctx context.Context, eventID string, fn func(ctx context.Context, tx domain.EventRepository, event *domain.Event) error) error {
	if r.locked {
		return errNestedLock
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		locked := &eventRepository{DB: r.DB, q: tx, locked: true}
		query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
		e, err := scanEvent(tx.QueryRowContext(ctx, query, eventID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return err
		}
		return fn(ctx, locked, e)
	})
}
