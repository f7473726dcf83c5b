package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"begegnungscafe/internal/delivery/http/helpers"
	"begegnungscafe/internal/delivery/http/middleware"
	"begegnungscafe/internal/domain"
)

// CreateBookingRequest is the request body for POST /bookings.
type CreateBookingRequest struct {
	RoomID    string    `json:"room_id" validate:"required,uuid"`
	Title     string    `json:"title" validate:"required,max=200"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

// Validate implements Validator.
func (c CreateBookingRequest) Validate() []string {
	if !c.StartTime.IsZero() && !c.EndTime.After(c.StartTime) {
		return []string{"end_time must be after start_time"}
	}
	return nil
}

// UpdateBookingRequest is the request body for PATCH /bookings/{bookingID}.
// Omitted fields are unchanged.
type UpdateBookingRequest struct {
	Title     *string    `json:"title" validate:"omitempty,min=1,max=200"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// DecisionRequest is the optional body of approve and reject.
type DecisionRequest struct {
	AdminNote *string `json:"admin_note" validate:"omitempty,max=1000"`
}

// BookingSuccessResponse is the success envelope for endpoints returning one booking.
type BookingSuccessResponse struct {
	Data  *domain.RoomBooking `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// ListBookingsSuccessResponse is the success envelope for GET /bookings.
type ListBookingsSuccessResponse struct {
	Data  []*domain.RoomBooking `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// ListRoomsSuccessResponse is the success envelope for GET /rooms.
type ListRoomsSuccessResponse struct {
	Data  []*domain.Room    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// AvailabilitySuccessResponse is the success envelope for GET /rooms/{roomID}/availability.
type AvailabilitySuccessResponse struct {
	Data  *domain.Availability `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

type BookingController struct {
	Logger  *slog.Logger
	Service domain.BookingService
}

func NewBookingController(logger *slog.Logger, svc domain.BookingService) *BookingController {
	return &BookingController{
		Logger:  logger,
		Service: svc,
	}
}

// ListRooms godoc
// @Summary List rooms
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListRoomsSuccessResponse
// @Router /rooms [get]
func (c *BookingController) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.Service.ListRooms(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if rooms == nil {
		rooms = []*domain.Room{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rooms)
}

// CheckAvailability godoc
// @Summary Check whether a room is free
// @Description Intervals are half-open: a booking ending at 12:00 does not block one starting at 12:00. Rejected bookings never block. exclude skips one booking, e.g. the one being edited.
// @Tags rooms
// @Produce json
// @Security BearerAuth
// @Param roomID path string true "Room ID (UUID)"
// @Param start query string true "RFC 3339 start"
// @Param end query string true "RFC 3339 end"
// @Param exclude query string false "Booking ID to ignore"
// @Success 200 {object} controllers.AvailabilitySuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /rooms/{roomID}/availability [get]
func (c *BookingController) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	roomID, ok := helpers.PathUUID(w, r, "roomID")
	if !ok {
		return
	}
	start, err := queryTime(r, "start")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	end, err := queryTime(r, "end")
	if err != nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
		return
	}
	if start == nil || end == nil {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "start and end are required")
		return
	}
	avail, err := c.Service.CheckAvailability(r.Context(), roomID, *start, *end, r.URL.Query().Get("exclude"))
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, avail)
}

// RequestBooking godoc
// @Summary Request a room booking
// @Description Creates a booking in status requested when the room is bookable, the caller may book it and the slot is free.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param booking body CreateBookingRequest true "Booking"
// @Success 201 {object} controllers.BookingSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: booking-conflict"
// @Router /bookings [post]
func (c *BookingController) RequestBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	b, err := c.Service.RequestBooking(r.Context(), userID, domain.CreateBookingInput{
		RoomID:    req.RoomID,
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, b)
}

// ListBookings godoc
// @Summary List bookings
// @Description Admins see all bookings. Other users see their own, or the occupancy of one room when room_id is given.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param room_id query string false "Room ID (UUID)"
// @Param status query string false "requested, approved or rejected"
// @Param from query string false "Bookings ending after (RFC 3339)"
// @Param to query string false "Bookings starting before (RFC 3339)"
// @Success 200 {object} controllers.ListBookingsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Router /bookings [get]
func (c *BookingController) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	q := r.URL.Query()
	filter := domain.BookingFilter{RoomID: q.Get("room_id"), Status: domain.BookingStatus(q.Get("status"))}
	if filter.RoomID != "" && !helpers.ValidVar(filter.RoomID, "uuid") {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "room_id must be a UUID")
		return
	}
	if filter.Status != "" && !helpers.ValidVar(string(filter.Status), "oneof=requested approved rejected") {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "status must be one of [requested approved rejected]")
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
	bookings, err := c.Service.ListBookings(r.Context(), userID, filter)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if bookings == nil {
		bookings = []*domain.RoomBooking{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, bookings)
}

// UpdateBooking godoc
// @Summary Edit a booking
// @Description The requester or an admin may change title and time. A moved booking is checked against the other bookings of the room; on conflict nothing changes.
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookingID path string true "Booking ID (UUID)"
// @Param body body UpdateBookingRequest true "Fields to update"
// @Success 200 {object} controllers.BookingSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: booking-conflict"
// @Router /bookings/{bookingID} [patch]
func (c *BookingController) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := helpers.PathUUID(w, r, "bookingID")
	if !ok {
		return
	}
	var req UpdateBookingRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	patch := domain.BookingPatch{Title: req.Title, StartTime: req.StartTime, EndTime: req.EndTime}
	b, err := c.Service.UpdateBooking(r.Context(), userID, bookingID, patch)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, b)
}

// ApproveBooking godoc
// @Summary Approve a booking (admin)
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookingID path string true "Booking ID (UUID)"
// @Param body body DecisionRequest false "Optional note for the requester"
// @Success 200 {object} controllers.BookingSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: booking-conflict"
// @Router /bookings/{bookingID}/approve [post]
func (c *BookingController) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, domain.BookingApproved)
}

// RejectBooking godoc
// @Summary Reject a booking (admin)
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookingID path string true "Booking ID (UUID)"
// @Param body body DecisionRequest false "Optional note for the requester"
// @Success 200 {object} controllers.BookingSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /bookings/{bookingID}/reject [post]
func (c *BookingController) RejectBooking(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, domain.BookingRejected)
}

func (c *BookingController) decide(w http.ResponseWriter, r *http.Request, status domain.BookingStatus) {
	bookingID, ok := helpers.PathUUID(w, r, "bookingID")
	if !ok {
		return
	}
	var req DecisionRequest
	if r.ContentLength != 0 && !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	adminID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	var (
		b   *domain.RoomBooking
		err error
	)
	if status == domain.BookingApproved {
		b, err = c.Service.ApproveBooking(r.Context(), adminID, bookingID, req.AdminNote)
	} else {
		b, err = c.Service.RejectBooking(r.Context(), adminID, bookingID, req.AdminNote)
	}
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, b)
}
