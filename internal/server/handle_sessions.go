package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/conferly/api/internal/conferly"
)

// SessionRequest is the body for creating/updating a session.
type SessionRequest struct {
	Title    string    `json:"title"`
	Room     string    `json:"room"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

func (req *SessionRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Room = strings.TrimSpace(req.Room)
	if req.Title == "" {
		return "title is required"
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() {
		return "startsAt and endsAt are required"
	}
	if !req.EndsAt.After(req.StartsAt) {
		return "endsAt must be after startsAt"
	}
	return ""
}

func handleListSessions(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conferenceID, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		list, err := store.ListSessions(r.Context(), conferenceID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []conferly.Session{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleCreateSession(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conferenceID, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		var req SessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		if _, err := store.GetConference(r.Context(), conferenceID); err != nil {
			writeError(w, http.StatusNotFound, "conference not found")
			return
		}

		sess, err := store.CreateSession(r.Context(), conferly.Session{
			ConferenceID: conferenceID,
			Title:        req.Title,
			Room:         req.Room,
			StartsAt:     req.StartsAt,
			EndsAt:       req.EndsAt,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleUpdateSession(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		var req SessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		existing, err := store.GetSession(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		existing.Title = req.Title
		existing.Room = req.Room
		existing.StartsAt = req.StartsAt
		existing.EndsAt = req.EndsAt
		if err := store.UpdateSession(r.Context(), existing); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, existing)
	}
}

func handleDeleteSession(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid session id")
			return
		}
		err := store.DeleteSession(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
