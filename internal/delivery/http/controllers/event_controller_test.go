package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"begegnungscafe/internal/delivery/http/helpers"
	"begegnungscafe/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createBody = `{
	"title": "Sprachcafé",
	"category": "sprache",
	"date_time_start": "2024-06-03T18:00:00+02:00",
	"date_time_end": "2024-06-03T20:00:00+02:00",
	"max_participants": 12,
	"recurrence": "weekly",
	"recurrence_end": "2024-06-24T00:00:00+02:00"
}`

func TestEventController_CreateEvent(t *testing.T) {
	series := seriesID
	svc := &fakeEventService{created: []*domain.Event{
		{ID: eventID, Title: "Sprachcafé", SeriesID: &series},
		{ID: "e2", Title: "Sprachcafé", SeriesID: &series},
	}}
	ctrl := NewEventController(testLogger, svc)

	w := serve("POST /events", ctrl.CreateEvent, jsonRequest(http.MethodPost, "/events", createBody), "org-1")

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	got := decodeData[CreateEventResponse](t, w)
	assert.Equal(t, 2, got.Count)
	require.NotNil(t, got.SeriesID)
	assert.Equal(t, seriesID, *got.SeriesID)

	assert.Equal(t, "org-1", svc.lastActor)
	assert.Equal(t, domain.RecurrenceWeekly, svc.lastRec.Kind)
	require.NotNil(t, svc.lastRec.End)
	assert.True(t, svc.lastInput.IsRegistrationOpen, "registration opens by default")
	require.NotNil(t, svc.lastInput.MaxParticipants)
	assert.Equal(t, 12, *svc.lastInput.MaxParticipants)
}

func TestEventController_CreateEvent_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		userID     string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"unauthorized", createBody, "", nil, http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
		{"missing title", `{"category":"sprache","date_time_start":"2024-06-03T18:00:00Z","date_time_end":"2024-06-03T19:00:00Z"}`, "org-1", nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"end before start", `{"title":"x","category":"sprache","date_time_start":"2024-06-03T18:00:00Z","date_time_end":"2024-06-03T17:00:00Z"}`, "org-1", nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"bad recurrence kind", `{"title":"x","category":"sprache","date_time_start":"2024-06-03T18:00:00Z","date_time_end":"2024-06-03T19:00:00Z","recurrence":"yearly"}`, "org-1", nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"membership is not accepted", `{"title":"x","category":"sprache","date_time_start":"2024-06-03T18:00:00Z","date_time_end":"2024-06-03T19:00:00Z","participants":["u1"]}`, "org-1", nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"missing recurrence end", createBody, "org-1", domain.ErrInvalidRecurrence, http.StatusBadRequest, string(domain.ReasonInvalidRecurrence)},
		{"forbidden category", createBody, "org-1", domain.ErrForbidden, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"storage failure", createBody, "org-1", errors.New("db down"), http.StatusInternalServerError, helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewEventController(testLogger, &fakeEventService{err: tt.svcErr})
			w := serve("POST /events", ctrl.CreateEvent, jsonRequest(http.MethodPost, "/events", tt.body), tt.userID)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, errorCode(t, w))
		})
	}
}

func TestEventController_GetEvent(t *testing.T) {
	svc := &fakeEventService{event: &domain.Event{ID: eventID, Title: "Sprachcafé"}}
	ctrl := NewEventController(testLogger, svc)

	w := serve("GET /events/{eventID}", ctrl.GetEvent, jsonRequest(http.MethodGet, "/events/"+eventID, ""), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sprachcafé", decodeData[domain.Event](t, w).Title)

	w = serve("GET /events/{eventID}", ctrl.GetEvent, jsonRequest(http.MethodGet, "/events/not-a-uuid", ""), "u1")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = fmt.Errorf("get event: %w", domain.ErrNotFound)
	w = serve("GET /events/{eventID}", ctrl.GetEvent, jsonRequest(http.MethodGet, "/events/"+eventID, ""), "u1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventController_ListEvents(t *testing.T) {
	svc := &fakeEventService{list: []*domain.Event{{ID: eventID}}, total: 41}
	ctrl := NewEventController(testLogger, svc)

	target := "/events?category=sport&from=2024-06-01T00:00:00Z&page=2&page_size=20&series_id=" + seriesID
	w := serve("GET /events", ctrl.ListEvents, jsonRequest(http.MethodGet, target, ""), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[ListEventsResponse](t, w)
	assert.Len(t, got.Items, 1)
	assert.Equal(t, helpers.PaginationMeta{Page: 2, PageSize: 20, Total: 41, TotalPages: 3}, got.Pagination)
	assert.Equal(t, "sport", svc.lastFilter.Category)
	assert.Equal(t, seriesID, svc.lastFilter.SeriesID)
	require.NotNil(t, svc.lastFilter.From)
	assert.True(t, svc.lastFilter.From.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Nil(t, svc.lastFilter.To)

	svc.list = nil
	w = serve("GET /events", ctrl.ListEvents, jsonRequest(http.MethodGet, "/events", ""), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decodeData[ListEventsResponse](t, w).Items)

	for _, bad := range []string{"/events?from=yesterday", "/events?series_id=abc"} {
		w = serve("GET /events", ctrl.ListEvents, jsonRequest(http.MethodGet, bad, ""), "u1")
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestEventController_UpdateEvent(t *testing.T) {
	svc := &fakeEventService{event: &domain.Event{ID: eventID, Title: "Neu"}}
	ctrl := NewEventController(testLogger, svc)
	pattern := "PATCH /events/{eventID}"

	w := serve(pattern, ctrl.UpdateEvent, jsonRequest(http.MethodPatch, "/events/"+eventID, `{"title":"Neu","max_participants":null}`), "org-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, svc.lastPatch.Title)
	assert.Equal(t, "Neu", *svc.lastPatch.Title)
	assert.True(t, svc.lastPatch.MaxParticipants.Set)
	assert.Nil(t, svc.lastPatch.MaxParticipants.Value)
	assert.False(t, svc.lastPatch.MinAge.Set)
	assert.Equal(t, "org-1", svc.lastActor)

	tests := map[string]string{
		"unknown field":    `{"participants":["u9"]}`,
		"series fields":    `{"series_id":"x"}`,
		"empty patch":      `{}`,
		"malformed":        `{"title":`,
		"wrong value type": `{"max_participants":"many"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := serve(pattern, ctrl.UpdateEvent, jsonRequest(http.MethodPatch, "/events/"+eventID, body), "org-1")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	svc.err = domain.ErrForbidden
	w = serve(pattern, ctrl.UpdateEvent, jsonRequest(http.MethodPatch, "/events/"+eventID, `{"title":"x"}`), "org-2")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEventController_Export(t *testing.T) {
	svc := &fakeEventService{ics: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")}
	ctrl := NewEventController(testLogger, svc)

	w := serve("GET /events/{eventID}/calendar.ics", ctrl.ExportEvent, jsonRequest(http.MethodGet, "/events/"+eventID+"/calendar.ics", ""), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "event-"+eventID+".ics")
	assert.Equal(t, string(svc.ics), w.Body.String())

	w = serve("GET /series/{seriesID}/calendar.ics", ctrl.ExportSeries, jsonRequest(http.MethodGet, "/series/"+seriesID+"/calendar.ics", ""), "u1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, seriesID, svc.lastEventID)

	svc.err = domain.ErrNotFound
	w = serve("GET /series/{seriesID}/calendar.ics", ctrl.ExportSeries, jsonRequest(http.MethodGet, "/series/"+seriesID+"/calendar.ics", ""), "u1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
