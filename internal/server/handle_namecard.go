package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/conferly/api/internal/payload"
	"github.com/conferly/api/internal/qr"
)

// handleNameCard renders the attendee's QR name card as a PNG. An optional
// sessionId query parameter scopes the card to one session.
func handleNameCard(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conferenceID, ok := idParam(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid conference id")
			return
		}
		attendeeID, ok := idParam(r, "attendeeID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid attendee id")
			return
		}

		var sessionID *int64
		if raw := r.URL.Query().Get("sessionId"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				writeError(w, http.StatusBadRequest, "invalid sessionId")
				return
			}
			sessionID = &id
		}

		ctx := r.Context()
		if _, err := store.GetConference(ctx, conferenceID); err != nil {
			writeError(w, http.StatusNotFound, "conference not found")
			return
		}
		if _, err := store.GetAttendee(ctx, attendeeID); err != nil {
			writeError(w, http.StatusNotFound, "attendee not found")
			return
		}
		// The card is only issued against an existing registration.
		if _, err := store.GetRegistration(ctx, attendeeID, conferenceID, sessionID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "no registration for this attendee")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		enc, err := qr.Encode(payload.New(attendeeID, conferenceID, sessionID))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "rendering name card failed")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(enc.PNG)))
		w.WriteHeader(http.StatusOK)
		w.Write(enc.PNG)
	}
}
