package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conferly/api/internal/conferly"
)

// ConferenceRequest is the body for creating/updating a conference.
type ConferenceRequest struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

func (req *ConferenceRequest) validate() string {
	req.Name = strings.TrimSpace(req.Name)
	req.Date = strings.TrimSpace(req.Date)
	req.Status = strings.TrimSpace(req.Status)
	if req.Name == "" {
		return "name is required"
	}
	if req.Date == "" {
		return "date is required"
	}
	if req.Status == "" {
		req.Status = string(conferly.ConferenceActive)
	}
	if req.Status != string(conferly.ConferenceActive) && req.Status != string(conferly.ConferenceInactive) {
		return "status must be active or inactive"
	}
	return ""
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func handleListConferences(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListConferences(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if list == nil {
			list = []conferly.Conference{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleGetConference(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		c, err := store.GetConference(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "conference not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleCreateConference(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConferenceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		c, err := store.CreateConference(r.Context(), req.Name, req.Date, conferly.ConferenceStatus(req.Status))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleUpdateConference(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		var req ConferenceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		c := conferly.Conference{ID: id, Name: req.Name, Date: req.Date, Status: conferly.ConferenceStatus(req.Status)}
		err := store.UpdateConference(r.Context(), c)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "conference not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleDeleteConference(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		err := store.DeleteConference(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "conference not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
