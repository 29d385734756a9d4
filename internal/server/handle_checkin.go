package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/conferly/api/internal/conferly"
	"github.com/conferly/api/internal/payload"
)

// AttendeeInfo carries manual check-in identity fields.
type AttendeeInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// CheckInRequest is the body of POST /api/checkin.
type CheckInRequest struct {
	AttendeeID   int64           `json:"attendeeId,omitempty"`
	QRCode       string          `json:"qrCode,omitempty"`
	ConferenceID int64           `json:"conferenceId"`
	Method       conferly.Method `json:"checkInMethod"`
	SessionID    *int64          `json:"sessionId,omitempty"`
	Action       conferly.Action `json:"actionType,omitempty"`
	AttendeeInfo *AttendeeInfo   `json:"attendeeInfo,omitempty"`
}

// CheckInResponse is the shared envelope for the check-in endpoints.
type CheckInResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    *conferly.CheckInRecord `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func failCheckIn(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, CheckInResponse{Success: false, Message: msg, Error: code})
}

// resolved is the attendee/registration pair a check-in request maps to.
type resolved struct {
	attendee     conferly.Attendee
	registration conferly.Registration
}

func handleCheckIn(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckInRequest
		if err := readJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, CheckInResponse{Success: false, Message: "invalid request body"})
			return
		}

		// Local preconditions: rejected before touching the database.
		if req.ConferenceID <= 0 {
			writeJSON(w, http.StatusBadRequest, CheckInResponse{Success: false, Message: "conferenceId is required"})
			return
		}
		if req.QRCode == "" && req.AttendeeID <= 0 {
			writeJSON(w, http.StatusBadRequest, CheckInResponse{Success: false, Message: "qrCode or attendeeId is required"})
			return
		}
		if req.Action == "" {
			req.Action = conferly.ActionCheckIn
		}
		if req.Action != conferly.ActionCheckIn && req.Action != conferly.ActionCheckOut {
			writeJSON(w, http.StatusBadRequest, CheckInResponse{Success: false, Message: "actionType must be checkin or checkout"})
			return
		}
		if req.Method == "" {
			req.Method = conferly.MethodQR
		}

		if _, err := store.GetConference(r.Context(), req.ConferenceID); err != nil {
			if errors.Is(err, ErrNotFound) {
				failCheckIn(w, http.StatusNotFound, "CONFERENCE_NOT_FOUND", "conference not found")
				return
			}
			failCheckIn(w, http.StatusInternalServerError, "", "internal error")
			return
		}

		res, errCode, errStatus := resolveRequest(r, logger, store, req)
		if errCode != "" {
			failCheckIn(w, errStatus, errCode, checkInMessage(errCode))
			return
		}

		// Manual path: the supplied email must match the registrant.
		if req.Method == conferly.MethodManual && req.AttendeeInfo != nil && req.AttendeeInfo.Email != "" {
			if !strings.EqualFold(strings.TrimSpace(req.AttendeeInfo.Email), res.attendee.Email) {
				recordAttempt(r, logger, store, req, res, conferly.RecordFailed)
				failCheckIn(w, http.StatusConflict, conferly.CodeEmailMismatch, checkInMessage(conferly.CodeEmailMismatch))
				return
			}
		}

		next, code := conferly.Advance(res.registration.Status, req.Action)
		if code != "" {
			recStatus := conferly.RecordFailed
			if code == conferly.CodeAlreadyCheckedIn {
				recStatus = conferly.RecordDuplicate
			}
			recordAttempt(r, logger, store, req, res, recStatus)
			failCheckIn(w, http.StatusConflict, code, checkInMessage(code))
			return
		}

		if err := store.SetRegistrationStatus(r.Context(), res.registration.ID, next); err != nil {
			logger.Error("updating registration status", "registration", res.registration.ID, "error", err)
			failCheckIn(w, http.StatusInternalServerError, "", "internal error")
			return
		}

		rec := recordAttempt(r, logger, store, req, res, conferly.RecordSuccess)

		eventType := "checked-in"
		msg := "Successfully checked in"
		if req.Action == conferly.ActionCheckOut {
			eventType = "checked-out"
			msg = "Successfully checked out"
		}
		broker.Publish(req.ConferenceID, CheckInEvent{
			Type:         eventType,
			RecordID:     rec.ID,
			AttendeeName: res.attendee.Name,
			Status:       rec.Status,
			ConferenceID: req.ConferenceID,
		})

		logger.Info("check-in processed",
			"attendee", res.attendee.ID,
			"conference", req.ConferenceID,
			"action", req.Action,
			"method", req.Method,
		)

		writeJSON(w, http.StatusOK, CheckInResponse{Success: true, Message: msg, Data: &rec})
	}
}

// resolveRequest maps the request to an attendee and registration. It
// returns an empty code on success, otherwise the taxonomy code and HTTP
// status to report.
func resolveRequest(r *http.Request, logger *slog.Logger, store Store, req CheckInRequest) (resolved, string, int) {
	ctx := r.Context()

	if req.QRCode != "" {
		d := payload.Parse(req.QRCode)
		if d.Kind == payload.KindLegacy {
			// Opaque code: resolve through the imported registration codes.
			reg, err := store.GetRegistrationByCode(ctx, d.Raw)
			if errors.Is(err, ErrNotFound) {
				return resolved{}, conferly.CodeQRCodeNotFound, http.StatusNotFound
			}
			if err != nil {
				return resolved{}, "INTERNAL", http.StatusInternalServerError
			}
			if reg.ConferenceID != req.ConferenceID {
				return resolved{}, conferly.CodeRegistrationNotFound, http.StatusNotFound
			}
			att, err := store.GetAttendee(ctx, reg.AttendeeID)
			if err != nil {
				return resolved{}, conferly.CodeQRCodeNotFound, http.StatusNotFound
			}
			return resolved{attendee: att, registration: reg}, "", 0
		}

		p := d.Payload
		if err := p.Validate(); err != nil {
			return resolved{}, conferly.CodeQRCodeNotFound, http.StatusNotFound
		}
		// The checksum is a corruption hint, not an authorization control:
		// log a mismatch and keep going. Registration state decides.
		if !p.ChecksumOK() {
			logger.Warn("payload checksum mismatch", "attendee", p.AttendeeID, "conference", p.ConferenceID)
		}
		// A card scoped to another conference is rejected outright, including
		// session-scoped cards: no silent fallback to conference-level.
		if p.ConferenceID != req.ConferenceID {
			return resolved{}, conferly.CodeRegistrationNotFound, http.StatusNotFound
		}

		att, err := store.GetAttendee(ctx, p.AttendeeID)
		if errors.Is(err, ErrNotFound) {
			return resolved{}, conferly.CodeQRCodeNotFound, http.StatusNotFound
		}
		if err != nil {
			return resolved{}, "INTERNAL", http.StatusInternalServerError
		}

		reg, err := store.GetRegistration(ctx, p.AttendeeID, p.ConferenceID, p.SessionID)
		if errors.Is(err, ErrNotFound) {
			return resolved{}, conferly.CodeRegistrationNotFound, http.StatusNotFound
		}
		if err != nil {
			return resolved{}, "INTERNAL", http.StatusInternalServerError
		}
		return resolved{attendee: att, registration: reg}, "", 0
	}

	// Manual path without a code: attendee id directly.
	att, err := store.GetAttendee(ctx, req.AttendeeID)
	if errors.Is(err, ErrNotFound) {
		return resolved{}, conferly.CodeRegistrationNotFound, http.StatusNotFound
	}
	if err != nil {
		return resolved{}, "INTERNAL", http.StatusInternalServerError
	}

	reg, err := store.GetRegistration(ctx, req.AttendeeID, req.ConferenceID, req.SessionID)
	if errors.Is(err, ErrNotFound) {
		return resolved{}, conferly.CodeRegistrationNotFound, http.StatusNotFound
	}
	if err != nil {
		return resolved{}, "INTERNAL", http.StatusInternalServerError
	}
	return resolved{attendee: att, registration: reg}, "", 0
}

// recordAttempt persists the attempt outcome. Recording is best-effort: a
// storage failure here must not mask the check-in result.
func recordAttempt(r *http.Request, logger *slog.Logger, store Store, req CheckInRequest, res resolved, status string) conferly.CheckInRecord {
	name := res.attendee.Name
	email := res.attendee.Email
	rec := conferly.CheckInRecord{
		ID:            uuid.NewString(),
		AttendeeName:  &name,
		AttendeeEmail: &email,
		CheckInTime:   conferly.DisplayTime(time.Now()),
		Status:        status,
		QRCode:        req.QRCode,
		ConferenceID:  req.ConferenceID,
		Method:        req.Method,
		Action:        req.Action,
	}
	if err := store.InsertCheckIn(r.Context(), rec); err != nil {
		logger.Error("recording check-in attempt", "record", rec.ID, "error", err)
	}
	return rec
}

func checkInMessage(code string) string {
	switch code {
	case conferly.CodeAlreadyCheckedIn:
		return "attendee has already checked in"
	case conferly.CodeNotCheckedIn:
		return "attendee has not checked in yet"
	case conferly.CodeEmailMismatch:
		return "email does not match the registered attendee"
	case conferly.CodeQRCodeNotFound:
		return "QR code does not match any registration"
	case conferly.CodeRegistrationNotFound:
		return "no registration for this attendee at this conference"
	case conferly.CodeRegistrationInactive:
		return "registration is not active"
	default:
		return "check-in failed"
	}
}
