package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"begegnungscafe/internal/delivery/http/helpers"
	"begegnungscafe/internal/delivery/http/middleware"
	"begegnungscafe/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	eventID   = "0d8f6f2e-6a43-4d55-8d1e-0a9d3c1d7a10"
	seriesID  = "7f3b3c52-3f27-4b0e-9b8a-2c6f1f0e5d21"
	roomID    = "5b0c9a4e-1d3f-4c53-9a57-0f5e0a0c2b11"
	bookingID = "c2f1e7a4-8b9d-4e3a-a1c6-6d2b7e9f0a33"
)

// serve routes req through a mux with the given pattern so path values are
// populated, authenticating as userID when non-empty.
func serve(pattern string, h http.HandlerFunc, req *http.Request, userID string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	if userID != "" {
		req = req.WithContext(middleware.SetUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	if body == "" {
		return httptest.NewRequest(method, target, nil)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp struct {
		Data  T                 `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Nil(t, resp.Error)
	return resp.Data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp helpers.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

type fakeEventService struct {
	err         error
	created     []*domain.Event
	event       *domain.Event
	list        []*domain.Event
	total       int
	ics         []byte
	lastActor   string
	lastInput   domain.CreateEventInput
	lastRec     domain.RecurrenceRequest
	lastFilter  domain.EventFilter
	lastParams  domain.PaginationParams
	lastPatch   domain.EventPatch
	lastEventID string
}

func (f *fakeEventService) CreateEvent(_ context.Context, actorID string, in domain.CreateEventInput, rec domain.RecurrenceRequest) ([]*domain.Event, error) {
	f.lastActor, f.lastInput, f.lastRec = actorID, in, rec
	return f.created, f.err
}

func (f *fakeEventService) GetEvent(_ context.Context, id string) (*domain.Event, error) {
	f.lastEventID = id
	return f.event, f.err
}

func (f *fakeEventService) ListEvents(_ context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.lastFilter, f.lastParams = filter, params
	return f.list, f.total, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, actorID, id string, patch domain.EventPatch) (*domain.Event, error) {
	f.lastActor, f.lastEventID, f.lastPatch = actorID, id, patch
	return f.event, f.err
}

func (f *fakeEventService) ExportCalendar(_ context.Context, id string) ([]byte, error) {
	f.lastEventID = id
	return f.ics, f.err
}

func (f *fakeEventService) ExportSeries(_ context.Context, id string) ([]byte, error) {
	f.lastEventID = id
	return f.ics, f.err
}

type fakeRegistrationService struct {
	out       *domain.RegistrationOutcome
	err       error
	lastCall  string
	lastActor string
	lastUser  string
}

func (f *fakeRegistrationService) record(call, actor, user string) (*domain.RegistrationOutcome, error) {
	f.lastCall, f.lastActor, f.lastUser = call, actor, user
	return f.out, f.err
}

func (f *fakeRegistrationService) Join(_ context.Context, _, userID string) (*domain.RegistrationOutcome, error) {
	return f.record("join", userID, userID)
}

func (f *fakeRegistrationService) Leave(_ context.Context, _, userID string) (*domain.RegistrationOutcome, error) {
	return f.record("leave", userID, userID)
}

func (f *fakeRegistrationService) Approve(_ context.Context, _, actorID, userID string) (*domain.RegistrationOutcome, error) {
	return f.record("approve", actorID, userID)
}

func (f *fakeRegistrationService) Reject(_ context.Context, _, actorID, userID string) (*domain.RegistrationOutcome, error) {
	return f.record("reject", actorID, userID)
}

func (f *fakeRegistrationService) Promote(_ context.Context, _, actorID, userID string) (*domain.RegistrationOutcome, error) {
	return f.record("promote", actorID, userID)
}

func (f *fakeRegistrationService) GetState(_ context.Context, _, userID string) (*domain.RegistrationOutcome, error) {
	return f.record("state", userID, userID)
}

type fakeBookingService struct {
	err          error
	rooms        []*domain.Room
	booking      *domain.RoomBooking
	bookings     []*domain.RoomBooking
	availability *domain.Availability
	lastCall     string
	lastUser     string
	lastInput    domain.CreateBookingInput
	lastPatch    domain.BookingPatch
	lastFilter   domain.BookingFilter
	lastNote     *string
	lastStart    time.Time
	lastExclude  string
}

func (f *fakeBookingService) ListRooms(context.Context) ([]*domain.Room, error) {
	return f.rooms, f.err
}

func (f *fakeBookingService) CheckAvailability(_ context.Context, _ string, start, _ time.Time, excludeID string) (*domain.Availability, error) {
	f.lastStart, f.lastExclude = start, excludeID
	return f.availability, f.err
}

func (f *fakeBookingService) RequestBooking(_ context.Context, userID string, in domain.CreateBookingInput) (*domain.RoomBooking, error) {
	f.lastCall, f.lastUser, f.lastInput = "request", userID, in
	return f.booking, f.err
}

func (f *fakeBookingService) UpdateBooking(_ context.Context, userID, _ string, patch domain.BookingPatch) (*domain.RoomBooking, error) {
	f.lastCall, f.lastUser, f.lastPatch = "update", userID, patch
	return f.booking, f.err
}

func (f *fakeBookingService) ApproveBooking(_ context.Context, adminID, _ string, note *string) (*domain.RoomBooking, error) {
	f.lastCall, f.lastUser, f.lastNote = "approve", adminID, note
	return f.booking, f.err
}

func (f *fakeBookingService) RejectBooking(_ context.Context, adminID, _ string, note *string) (*domain.RoomBooking, error) {
	f.lastCall, f.lastUser, f.lastNote = "reject", adminID, note
	return f.booking, f.err
}

func (f *fakeBookingService) ListBookings(_ context.Context, userID string, filter domain.BookingFilter) ([]*domain.RoomBooking, error) {
	f.lastCall, f.lastUser, f.lastFilter = "list", userID, filter
	return f.bookings, f.err
}
