package server

import (
	"errors"
	"net/http"

	"github.com/conferly/api/internal/conferly"
	"github.com/conferly/api/internal/payload"
)

// ValidateQRRequest is the body of POST /api/validate-qr.
type ValidateQRRequest struct {
	QRCode       string `json:"qrCode"`
	ConferenceID int64  `json:"conferenceId"`
}

// ValidateQRResponse reports whether a code resolves to a registration.
type ValidateQRResponse struct {
	Valid    bool               `json:"valid"`
	Attendee *conferly.Attendee `json:"attendee,omitempty"`
}

// handleValidateQR resolves a code without mutating registration state,
// for pre-flight validation on scan stations.
func handleValidateQR(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateQRRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.QRCode == "" || req.ConferenceID <= 0 {
			writeError(w, http.StatusBadRequest, "qrCode and conferenceId are required")
			return
		}

		ctx := r.Context()
		invalid := ValidateQRResponse{Valid: false}

		d := payload.Parse(req.QRCode)
		if d.Kind == payload.KindLegacy {
			reg, err := store.GetRegistrationByCode(ctx, d.Raw)
			if err != nil || reg.ConferenceID != req.ConferenceID {
				writeJSON(w, http.StatusOK, invalid)
				return
			}
			att, err := store.GetAttendee(ctx, reg.AttendeeID)
			if err != nil {
				writeJSON(w, http.StatusOK, invalid)
				return
			}
			writeJSON(w, http.StatusOK, ValidateQRResponse{Valid: true, Attendee: &att})
			return
		}

		p := d.Payload
		if p.Validate() != nil || p.ConferenceID != req.ConferenceID {
			writeJSON(w, http.StatusOK, invalid)
			return
		}
		if _, err := store.GetRegistration(ctx, p.AttendeeID, p.ConferenceID, p.SessionID); err != nil {
			if errors.Is(err, ErrNotFound) {
				writeJSON(w, http.StatusOK, invalid)
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		att, err := store.GetAttendee(ctx, p.AttendeeID)
		if err != nil {
			writeJSON(w, http.StatusOK, invalid)
			return
		}
		writeJSON(w, http.StatusOK, ValidateQRResponse{Valid: true, Attendee: &att})
	}
}
