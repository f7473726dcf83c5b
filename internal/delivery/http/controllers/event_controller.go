package controllers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"begegnungscafe/internal/delivery/http/helpers"
	"begegnungscafe/internal/delivery/http/middleware"
	"begegnungscafe/internal/domain"
)

// CreateEventRequest is the request body for POST /events. A recurrence other
// than "none" creates one event per occurrence up to recurrence_end (inclusive).
type CreateEventRequest struct {
	Title              string                   `json:"title" validate:"required,max=200"`
	Description        string                   `json:"description"`
	Location           string                   `json:"location"`
	Category           string                   `json:"category" validate:"required"`
	DateTimeStart      time.Time                `json:"date_time_start" validate:"required"`
	DateTimeEnd        time.Time                `json:"date_time_end" validate:"required"`
	MaxParticipants    *int                     `json:"max_participants" validate:"omitempty,gte=0"`
	RegistrationMode   domain.RegistrationMode  `json:"registration_mode" validate:"omitempty,oneof=instant request"`
	IsRegistrationOpen *bool                    `json:"is_registration_open"`
	GenderRestriction  domain.GenderRestriction `json:"gender_restriction" validate:"omitempty,oneof=none male female"`
	MinAge             *int                     `json:"min_age" validate:"omitempty,gte=0"`
	MaxAge             *int                     `json:"max_age" validate:"omitempty,gte=0"`
	Recurrence         domain.RecurrenceKind    `json:"recurrence" validate:"omitempty,oneof=none daily weekly monthly"`
	RecurrenceEnd      *time.Time               `json:"recurrence_end"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if !c.DateTimeStart.IsZero() && !c.DateTimeEnd.After(c.DateTimeStart) {
		errs = append(errs, "date_time_end must be after date_time_start")
	}
	if c.MinAge != nil && c.MaxAge != nil && *c.MinAge > *c.MaxAge {
		errs = append(errs, "min_age must not exceed max_age")
	}
	return errs
}

func (c CreateEventRequest) input() (domain.CreateEventInput, domain.RecurrenceRequest) {
	open := true
	if c.IsRegistrationOpen != nil {
		open = *c.IsRegistrationOpen
	}
	in := domain.CreateEventInput{
		Title:              c.Title,
		Description:        c.Description,
		Location:           c.Location,
		Category:           c.Category,
		DateTimeStart:      c.DateTimeStart,
		DateTimeEnd:        c.DateTimeEnd,
		MaxParticipants:    c.MaxParticipants,
		RegistrationMode:   c.RegistrationMode,
		IsRegistrationOpen: open,
		GenderRestriction:  c.GenderRestriction,
		MinAge:             c.MinAge,
		MaxAge:             c.MaxAge,
	}
	return in, domain.RecurrenceRequest{Kind: c.Recurrence, End: c.RecurrenceEnd}
}

// CreateEventResponse is the data payload for POST /events (201).
type CreateEventResponse struct {
	SeriesID *string         `json:"series_id"`
	Count    int             `json:"count"`
	Events   []*domain.Event `json:"events"`
}

// CreateEventSuccessResponse is the success response envelope for POST /events (201).
type CreateEventSuccessResponse struct {
	Data  CreateEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// EventSuccessResponse is the success envelope for endpoints returning one event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the data payload for GET /events (200).
type ListEventsResponse struct {
	Items      []*domain.Event        `json:"items"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event or a recurring series
// @Description Organizers create events in their categories; admins in any. With recurrence daily, weekly or monthly one event per occurrence is created (at most 52) and all share a series_id.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the created events"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request or invalid-recurrence"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	in, rec := req.input()
	events, err := c.Service.CreateEvent(r.Context(), userID, in, rec)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	resp := CreateEventResponse{Count: len(events), Events: events}
	if len(events) > 0 {
		resp.SeriesID = events[0].SeriesID
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, resp)
}

// GetEvent godoc
// @Summary Get an event by ID
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ListEvents godoc
// @Summary List events
// @Description Events ordered by start time. from and to are RFC 3339 timestamps.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param category query string false "Category"
// @Param series_id query string false "Series ID (UUID)"
// @Param from query string false "Events starting at or after"
// @Param to query string false "Events starting before"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains items and pagination"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.EventFilter{Category: q.Get("category"), SeriesID: q.Get("series_id")}
	if filter.SeriesID != "" && !helpers.ValidVar(filter.SeriesID, "uuid") {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "series_id must be a UUID")
		return
	}
	var err error
	if filter.From, err = queryTime(r, "from"); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListEvents(r.Context(), filter, params)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	meta := helpers.NewPaginationMeta(params.Page, params.PageSize, total)
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{Items: events, Pagination: meta})
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Only the listed fields can be changed; unknown fields (including membership) are rejected. max_participants, min_age and max_age accept null to clear the limit. Requires the creator, an organizer of the category or an admin.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body domain.EventPatch true "Fields to update"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	var patch domain.EventPatch
	if !helpers.DecodeAndValidate(w, r, &patch) {
		return
	}
	if patch.IsEmpty() {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "nothing to update")
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), userID, eventID, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// ExportEvent godoc
// @Summary Download an event as iCalendar
// @Tags events
// @Produce text/calendar
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {string} string "text/calendar document"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/calendar.ics [get]
func (c *EventController) ExportEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	data, err := c.Service.ExportCalendar(r.Context(), eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	writeCalendar(w, "event-"+eventID, data)
}

// ExportSeries godoc
// @Summary Download all occurrences of a series as iCalendar
// @Tags events
// @Produce text/calendar
// @Security BearerAuth
// @Param seriesID path string true "Series ID (UUID)"
// @Success 200 {string} string "text/calendar document"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /series/{seriesID}/calendar.ics [get]
func (c *EventController) ExportSeries(w http.ResponseWriter, r *http.Request) {
	seriesID, ok := helpers.PathUUID(w, r, "seriesID")
	if !ok {
		return
	}
	data, err := c.Service.ExportSeries(r.Context(), seriesID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	writeCalendar(w, "series-"+seriesID, data)
}

func writeCalendar(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.ics"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// queryTime parses an optional RFC 3339 query parameter.
func queryTime(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return &t, nil
}
