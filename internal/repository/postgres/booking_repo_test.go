package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"begegnungscafe/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingColumnNames = []string{"id", "room_id", "requested_by", "title", "start_time", "end_time", "status", "admin_note", "created_at", "updated_at"}

var (
	bStart = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	bEnd   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func bookingRow(rows *sqlmock.Rows, id, status string, note any) *sqlmock.Rows {
	return rows.AddRow(id, "room-1", "u1", "Nähkurs", bStart, bEnd, status, note, created, created)
}

func TestRoomRepository(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "name", "description", "capacity", "not_bookable", "created_at", "updated_at"}

	t.Run("get by id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM rooms\s+WHERE id = \$1`).
			WithArgs("room-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("room-1", "Werkstatt", "", 12, false, created, created))

		room, err := NewRoomRepository(db).GetByID(ctx, "room-1")
		require.NoError(t, err)
		assert.Equal(t, "Werkstatt", room.Name)
		assert.Equal(t, 12, room.Capacity)
	})

	t.Run("get missing room", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM rooms`).WillReturnError(sql.ErrNoRows)
		_, err = NewRoomRepository(db).GetByID(ctx, "room-1")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM rooms\s+ORDER BY name`).
			WillReturnRows(sqlmock.NewRows(columns).
				AddRow("room-1", "Atelier", "", 8, false, created, created).
				AddRow("room-2", "Lager", "", 0, true, created, created))

		rooms, err := NewRoomRepository(db).List(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.True(t, rooms[1].NotBookable)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO room_bookings`).
					WithArgs("room-1", "u1", "Nähkurs", bStart, bEnd, "requested", nil, created, created).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b-1"))
			},
		},
		{
			name: "exclusion violation is a booking conflict",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO room_bookings`).
					WillReturnError(&pq.Error{Code: "23P01"})
			},
			wantErr: domain.ErrBookingConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			b := &domain.RoomBooking{
				RoomID: "room-1", RequestedBy: "u1", Title: "Nähkurs", StartTime: bStart, EndTime: bEnd,
				Status: domain.BookingRequested, CreatedAt: created, UpdatedAt: created,
			}
			err = NewBookingRepository(db).Create(ctx, b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "b-1", b.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	to := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM room_bookings WHERE room_id = \$1 AND status = \$2 AND start_time < \$3 ORDER BY start_time, id`).
		WithArgs("room-1", "approved", to).
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumnNames), "b-1", "approved", "passt"))

	got, err := NewBookingRepository(db).List(context.Background(), domain.BookingFilter{
		RoomID: "room-1", Status: domain.BookingApproved, To: &to,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BookingApproved, got[0].Status)
	require.NotNil(t, got[0].AdminNote)
	assert.Equal(t, "passt", *got[0].AdminNote)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByRoom(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows(bookingColumnNames)
	bookingRow(rows, "b-1", "approved", nil)
	bookingRow(rows, "b-2", "rejected", nil)
	mock.ExpectQuery(`WHERE room_id = \$1 ORDER BY start_time`).
		WithArgs("room-1").
		WillReturnRows(rows)

	got, err := NewBookingRepository(db).ListByRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Len(t, got, 2, "rejected bookings are returned too")
	assert.Nil(t, got[0].AdminNote)
}

func TestBookingRepository_UpdateInterval(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "success"},
		{name: "missing booking", err: sql.ErrNoRows, wantErr: domain.ErrNotFound},
		{name: "overlap rejected by constraint", err: &pq.Error{Code: "23P01"}, wantErr: domain.ErrBookingConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			exp := mock.ExpectQuery(`UPDATE room_bookings\s+SET title = \$1, start_time = \$2, end_time = \$3`).
				WithArgs("Nähkurs", bStart, bEnd, "b-1")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(created))
			}

			b := &domain.RoomBooking{ID: "b-1", Title: "Nähkurs", StartTime: bStart, EndTime: bEnd}
			err = NewBookingRepository(db).UpdateInterval(ctx, b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, created, b.UpdatedAt)
		})
	}
}

func TestBookingRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	note := "Raum ist frei"
	mock.ExpectQuery(`UPDATE room_bookings\s+SET status = \$1, admin_note = COALESCE\(\$2, admin_note\)`).
		WithArgs("approved", "Raum ist frei", "b-1").
		WillReturnRows(bookingRow(sqlmock.NewRows(bookingColumnNames), "b-1", "approved", note))

	got, err := NewBookingRepository(db).UpdateStatus(context.Background(), "b-1", domain.BookingApproved, &note)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingApproved, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_WithRoomLock(t *testing.T) {
	ctx := context.Background()

	t.Run("locks the room and commits", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtext\(\$1\)\)`).
			WithArgs("room:room-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`WHERE room_id = \$1`).
			WithArgs("room-1").
			WillReturnRows(sqlmock.NewRows(bookingColumnNames))
		mock.ExpectQuery(`INSERT INTO room_bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b-9"))
		mock.ExpectCommit()

		err = NewBookingRepository(db).WithRoomLock(ctx, "room-1", func(ctx context.Context, tx domain.BookingRepository) error {
			existing, err := tx.ListByRoom(ctx, "room-1")
			if err != nil {
				return err
			}
			assert.Empty(t, existing)
			return tx.Create(ctx, &domain.RoomBooking{RoomID: "room-1", Status: domain.BookingRequested})
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err = NewBookingRepository(db).WithRoomLock(ctx, "room-1", func(context.Context, domain.BookingRepository) error {
			return domain.ErrBookingConflict
		})
		require.ErrorIs(t, err, domain.ErrBookingConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("conn refused"))
		err = NewBookingRepository(db).WithRoomLock(ctx, "room-1", func(context.Context, domain.BookingRepository) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "begin tx")
	})
}
