package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/conferly/api/internal/conferly"
)

// AttendeeRequest is the body for creating/updating an attendee.
type AttendeeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (req *AttendeeRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" {
		return "name is required"
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return "a valid email is required"
	}
	return ""
}

func handleListAttendees(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListAttendees(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []conferly.Attendee{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleCreateAttendee(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AttendeeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		a, err := store.CreateAttendee(r.Context(), req.Name, req.Email)
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusConflict, "an attendee with this email already exists")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func handleUpdateAttendee(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid attendee id")
			return
		}
		var req AttendeeRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		a := conferly.Attendee{ID: id, Name: req.Name, Email: req.Email}
		err := store.UpdateAttendee(r.Context(), a)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "attendee not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handleDeleteAttendee(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid attendee id")
			return
		}
		err := store.DeleteAttendee(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "attendee not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RegistrationRequest registers an attendee for a conference, optionally
// scoped to a session, optionally carrying an imported legacy code.
type RegistrationRequest struct {
	AttendeeID int64  `json:"attendeeId"`
	SessionID  *int64 `json:"sessionId,omitempty"`
	Code       string `json:"code,omitempty"`
}

func handleListRegistrations(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conferenceID, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		list, err := store.ListRegistrations(r.Context(), conferenceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []conferly.Registration{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// handleCreateRegistration is the administrative entry into the state
// machine: it is the only way a registration reaches `registered`.
func handleCreateRegistration(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conferenceID, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		var req RegistrationRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.AttendeeID <= 0 {
			writeError(w, http.StatusBadRequest, "attendeeId is required")
			return
		}

		ctx := r.Context()
		if _, err := store.GetConference(ctx, conferenceID); err != nil {
			writeError(w, http.StatusNotFound, "conference not found")
			return
		}
		if _, err := store.GetAttendee(ctx, req.AttendeeID); err != nil {
			writeError(w, http.StatusNotFound, "attendee not found")
			return
		}
		if req.SessionID != nil {
			sess, err := store.GetSession(ctx, *req.SessionID)
			if err != nil || sess.ConferenceID != conferenceID {
				writeError(w, http.StatusBadRequest, "session does not belong to this conference")
				return
			}
		}

		reg, err := store.CreateRegistration(ctx, req.AttendeeID, conferenceID, req.SessionID, strings.TrimSpace(req.Code))
		if errors.Is(err, ErrDuplicate) {
			writeError(w, http.StatusConflict, "attendee is already registered for this scope")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, reg)
	}
}

// RegistrationStatusRequest drives the administrative side branches.
type RegistrationStatusRequest struct {
	Status string `json:"status"`
}

var adminSettableStatuses = map[conferly.RegistrationStatus]bool{
	conferly.StatusCancelled: true,
	conferly.StatusNoShow:    true,
}

func handleSetRegistrationStatus(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid registration id")
			return
		}
		var req RegistrationStatusRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		status := conferly.RegistrationStatus(strings.TrimSpace(req.Status))
		// Check-in and check-out only ever happen through POST /api/checkin.
		if !adminSettableStatuses[status] {
			writeError(w, http.StatusBadRequest, "status must be cancelled or no-show")
			return
		}

		err := store.SetRegistrationStatus(r.Context(), id, status)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "registration not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("registration status changed",
			"registration", id,
			"status", status,
			"by", adminFrom(r).Email,
		)
		w.WriteHeader(http.StatusNoContent)
	}
}
