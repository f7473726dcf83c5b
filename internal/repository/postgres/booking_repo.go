package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"begegnungscafe/internal/domain"
)

const bookingColumns = `id, room_id, requested_by, title, start_time, end_time, status, admin_note, created_at, updated_at`

type bookingRepository struct {
	DB     *sql.DB
	q      querier
	locked bool
}

// NewBookingRepository returns a domain.BookingRepository implemented with Postgres.
func NewBookingRepository(db *sql.DB) domain.BookingRepository {
	return &bookingRepository{DB: db, q: db}
}

func scanBooking(row rowScanner) (*domain.RoomBooking, error) {
	b := &domain.RoomBooking{}
	var note sql.NullString
	err := row.Scan(&b.ID, &b.RoomID, &b.RequestedBy, &b.Title, &b.StartTime, &b.EndTime, &b.Status, &note, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.AdminNote = nullStringPtr(note)
	return b, nil
}

// bookingWriteErr maps the room_bookings_no_overlap exclusion constraint to
// domain.ErrBookingConflict.
func bookingWriteErr(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.ErrNotFound
	case pqCode(err) == codeExclusionViolation:
		return domain.ErrBookingConflict
	}
	return err
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.RoomBooking) error {
	query := `
		INSERT INTO room_bookings (room_id, requested_by, title, start_time, end_time, status, admin_note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		b.RoomID, b.RequestedBy, b.Title, b.StartTime, b.EndTime, string(b.Status), stringArg(b.AdminNote), b.CreatedAt, b.UpdatedAt,
	).Scan(&b.ID)
	if err != nil {
		return bookingWriteErr(err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.RoomBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM room_bookings WHERE id = $1`
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, filter domain.BookingFilter) ([]*domain.RoomBooking, error) {
	var clauses []string
	var args []any
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.RoomID != "" {
		add("room_id = $%d", filter.RoomID)
	}
	if filter.RequestedBy != "" {
		add("requested_by = $%d", filter.RequestedBy)
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.From != nil {
		add("end_time > $%d", *filter.From)
	}
	if filter.To != nil {
		add("start_time < $%d", *filter.To)
	}
	query := `SELECT ` + bookingColumns + ` FROM room_bookings`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_time, id`
	return r.queryBookings(ctx, query, args...)
}

func (r *bookingRepository) ListByRoom(ctx context.Context, roomID string) ([]*domain.RoomBooking, error) {
	query := `SELECT ` + bookingColumns + ` FROM room_bookings WHERE room_id = $1 ORDER BY start_time`
	return r.queryBookings(ctx, query, roomID)
}

func (r *bookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*domain.RoomBooking, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]*domain.RoomBooking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateInterval stores the title and time range of b. Status is untouched.
func (r *bookingRepository) UpdateInterval(ctx context.Context, b *domain.RoomBooking) error {
	query := `
		UPDATE room_bookings
		SET title = $1, start_time = $2, end_time = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.q.QueryRowContext(ctx, query, b.Title, b.StartTime, b.EndTime, b.ID).Scan(&b.UpdatedAt)
	if err != nil {
		return bookingWriteErr(err)
	}
	return nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, status domain.BookingStatus, adminNote *string) (*domain.RoomBooking, error) {
	query := `
		UPDATE room_bookings
		SET status = $1, admin_note = COALESCE($2, admin_note), updated_at = NOW()
		WHERE id = $3
		RETURNING ` + bookingColumns
	b, err := scanBooking(r.q.QueryRowContext(ctx, query, string(status), stringArg(adminNote), id))
	if err != nil {
		return nil, bookingWriteErr(err)
	}
	return b, nil
}

// WithRoomLock takes a transaction-scoped advisory lock keyed by the room id
// and runs fn in that transaction. Conflict checks and writes made through
// the repository passed to fn are therefore serialized per room.
func (r *bookingRepository) WithRoomLock(ctx context.Context, roomID string, fn func(ctx context.Context, tx domain.BookingRepository) error) error {
	if r.locked {
		return errNestedLock
	}
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "room:"+roomID); err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		return fn(ctx, &bookingRepository{DB: r.DB, q: tx, locked: true})
	})
}
