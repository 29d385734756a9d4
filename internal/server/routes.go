package server

import (
	"database/sql"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, store Store, db *sql.DB, opts Options) {
	broker := NewBroker()

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Conferly API", "/openapi.json", "/docs"))
	r.Get("/healthz", handleHealth(logger, db))

	r.Route("/api", func(r chi.Router) {
		// Public surface: conference context for scan stations, plus the
		// rate-limited check-in endpoints driven by kiosks and scanners.
		r.Get("/conferences", handleListConferences(store))
		r.Get("/conferences/{id}", handleGetConference(store))
		r.Get("/conferences/{id}/sessions", handleListSessions(store))

		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware(opts.CheckinRPS, opts.CheckinBurst))
			r.Post("/checkin", handleCheckIn(logger, store, broker))
			r.Post("/validate-qr", handleValidateQR(store))
		})

		r.Post("/admin/login", handleAdminLogin(store))
		r.Post("/admin/logout", handleAdminLogout(store))
		r.Get("/admin/me", handleAdminMe(store))

		// Staff surface: check-in history, live feed, name cards.
		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(store, roleStaff, roleAdmin))
			r.Get("/checkins", handleListCheckIns(store))
			r.Get("/checkins/events", handleCheckInEvents(broker))
			r.Get("/conferences/{id}/attendees/{attendeeID}/namecard", handleNameCard(store))
		})

		// Admin surface: conference, attendee, session, and registration
		// management.
		r.Group(func(r chi.Router) {
			r.Use(adminAuthMiddleware(store, roleAdmin))

			r.Post("/conferences", handleCreateConference(store))
			r.Put("/conferences/{id}", handleUpdateConference(store))
			r.Delete("/conferences/{id}", handleDeleteConference(store))

			r.Post("/conferences/{id}/sessions", handleCreateSession(store))
			r.Put("/sessions/{id}", handleUpdateSession(store))
			r.Delete("/sessions/{id}", handleDeleteSession(store))

			r.Get("/attendees", handleListAttendees(store))
			r.Post("/attendees", handleCreateAttendee(store))
			r.Put("/attendees/{id}", handleUpdateAttendee(store))
			r.Delete("/attendees/{id}", handleDeleteAttendee(store))

			r.Get("/conferences/{id}/registrations", handleListRegistrations(store))
			r.Post("/conferences/{id}/registrations", handleCreateRegistration(store))
			r.Put("/registrations/{id}/status", handleSetRegistrationStatus(logger, store))
		})
	})

	if opts.SPADir != "" {
		if info, err := os.Stat(opts.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", opts.SPADir)
			r.NotFound(handleSPA(opts.SPADir))
		}
	}
}
