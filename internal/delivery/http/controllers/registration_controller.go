package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"begegnungscafe/internal/delivery/http/helpers"
	"begegnungscafe/internal/delivery/http/middleware"
	"begegnungscafe/internal/domain"
)

// RegistrationSuccessResponse is the success envelope for registration actions.
type RegistrationSuccessResponse struct {
	Data  *domain.RegistrationOutcome `json:"data"`
	Error *helpers.APIError           `json:"error"`
}

type RegistrationController struct {
	Logger  *slog.Logger
	Service domain.RegistrationService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationService) *RegistrationController {
	return &RegistrationController{
		Logger:  logger,
		Service: svc,
	}
}

// Join godoc
// @Summary Join an event
// @Description Joins instantly, queues for approval (request mode) or lands on the waitlist when the event is full. Joining again is a no-op answered with 200 and reason already-in-event.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegistrationSuccessResponse "data.state is joined, pending or waitlisted"
// @Success 200 {object} controllers.RegistrationSuccessResponse "already in the event"
// @Failure 403 {object} helpers.APIResponse "error.code: ineligible or registration-closed"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) Join(w http.ResponseWriter, r *http.Request) {
	eventID, userID, ok := c.eventAndUser(w, r)
	if !ok {
		return
	}
	out, err := c.Service.Join(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	status := http.StatusCreated
	if !out.Changed {
		status = http.StatusOK
	}
	helpers.WriteJSONSuccess(w, status, out)
}

// Leave godoc
// @Summary Leave an event
// @Description Removes the caller from participants, pending and waitlist. Nobody is promoted automatically.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations [delete]
func (c *RegistrationController) Leave(w http.ResponseWriter, r *http.Request) {
	eventID, userID, ok := c.eventAndUser(w, r)
	if !ok {
		return
	}
	out, err := c.Service.Leave(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}

// GetMine godoc
// @Summary Get the caller's registration state
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/registrations/me [get]
func (c *RegistrationController) GetMine(w http.ResponseWriter, r *http.Request) {
	eventID, userID, ok := c.eventAndUser(w, r)
	if !ok {
		return
	}
	out, err := c.Service.GetState(r.Context(), eventID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}

// Approve godoc
// @Summary Approve a pending registration
// @Description Moves the user from pending to participants, even past capacity. Requires edit rights on the event.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: not-pending"
// @Router /events/{eventID}/registrations/{userID}/approve [post]
func (c *RegistrationController) Approve(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.Service.Approve)
}

// Reject godoc
// @Summary Reject a pending registration
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: not-pending"
// @Router /events/{eventID}/registrations/{userID}/reject [post]
func (c *RegistrationController) Reject(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.Service.Reject)
}

// Promote godoc
// @Summary Promote a waitlisted user
// @Description Moves the user from the waitlist to participants when a seat is free.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param userID path string true "User ID"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: not-waitlisted or event-full"
// @Router /events/{eventID}/registrations/{userID}/promote [post]
func (c *RegistrationController) Promote(w http.ResponseWriter, r *http.Request) {
	c.decide(w, r, c.Service.Promote)
}

type decisionFunc func(ctx context.Context, eventID, actorID, userID string) (*domain.RegistrationOutcome, error)

func (c *RegistrationController) decide(w http.ResponseWriter, r *http.Request, fn decisionFunc) {
	eventID, actorID, ok := c.eventAndUser(w, r)
	if !ok {
		return
	}
	userID := r.PathValue("userID")
	if userID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing userID")
		return
	}
	out, err := fn(r.Context(), eventID, actorID, userID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}

func (c *RegistrationController) eventAndUser(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	eventID, ok := helpers.PathUUID(w, r, "eventID")
	if !ok {
		return "", "", false
	}
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return "", "", false
	}
	return eventID, userID, true
}
