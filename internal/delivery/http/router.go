package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"begegnungscafe/internal/delivery/http/controllers"
	"begegnungscafe/internal/delivery/http/helpers"
	"begegnungscafe/internal/delivery/http/middleware"
	"begegnungscafe/internal/domain"
)

// RouterDeps are the collaborators the HTTP API needs.
type RouterDeps struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	AllowedOrigins []string
	Events         *controllers.EventController
	Registrations  *controllers.RegistrationController
	Bookings       *controllers.BookingController
}

// NewRouter initializes the HTTP router with all application routes, wrapped
// in CORS and request logging.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(deps.Verifier, deps.Logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Events
	mux.HandleFunc("POST /events", auth(deps.Events.CreateEvent))
	mux.HandleFunc("GET /events", auth(deps.Events.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(deps.Events.GetEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(deps.Events.UpdateEvent))
	mux.HandleFunc("GET /events/{eventID}/calendar.ics", auth(deps.Events.ExportEvent))
	mux.HandleFunc("GET /series/{seriesID}/calendar.ics", auth(deps.Events.ExportSeries))

	// Registrations
	mux.HandleFunc("POST /events/{eventID}/registrations", auth(deps.Registrations.Join))
	mux.HandleFunc("DELETE /events/{eventID}/registrations", auth(deps.Registrations.Leave))
	mux.HandleFunc("GET /events/{eventID}/registrations/me", auth(deps.Registrations.GetMine))
	mux.HandleFunc("POST /events/{eventID}/registrations/{userID}/approve", auth(deps.Registrations.Approve))
	mux.HandleFunc("POST /events/{eventID}/registrations/{userID}/reject", auth(deps.Registrations.Reject))
	mux.HandleFunc("POST /events/{eventID}/registrations/{userID}/promote", auth(deps.Registrations.Promote))

	// Rooms and bookings
	mux.HandleFunc("GET /rooms", auth(deps.Bookings.ListRooms))
	mux.HandleFunc("GET /rooms/{roomID}/availability", auth(deps.Bookings.CheckAvailability))
	mux.HandleFunc("POST /bookings", auth(deps.Bookings.RequestBooking))
	mux.HandleFunc("GET /bookings", auth(deps.Bookings.ListBookings))
	mux.HandleFunc("PATCH /bookings/{bookingID}", auth(deps.Bookings.UpdateBooking))
	mux.HandleFunc("POST /bookings/{bookingID}/approve", auth(deps.Bookings.ApproveBooking))
	mux.HandleFunc("POST /bookings/{bookingID}/reject", auth(deps.Bookings.RejectBooking))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return middleware.LoggingMiddleware(deps.Logger, middleware.CORS(deps.AllowedOrigins, mux))
}
