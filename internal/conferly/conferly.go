// Package conferly defines the core domain types and the check-in error
// taxonomy shared by the server and the scan-station client.
package conferly

import "time"

type Conference struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Date      string           `json:"date"`
	Status    ConferenceStatus `json:"status"`
	CreatedAt time.Time        `json:"createdAt"`
}

type ConferenceStatus string

const (
	ConferenceActive   ConferenceStatus = "active"
	ConferenceInactive ConferenceStatus = "inactive"
)

type Attendee struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type Session struct {
	ID           int64     `json:"id"`
	ConferenceID int64     `json:"conferenceId"`
	Title        string    `json:"title"`
	Room         string    `json:"room"`
	StartsAt     time.Time `json:"startsAt"`
	EndsAt       time.Time `json:"endsAt"`
}

// Registration links an attendee to a conference, optionally scoped to a
// single session. SessionID nil means a conference-level registration.
type Registration struct {
	ID           int64              `json:"id"`
	AttendeeID   int64              `json:"attendeeId"`
	ConferenceID int64              `json:"conferenceId"`
	SessionID    *int64             `json:"sessionId,omitempty"`
	Status       RegistrationStatus `json:"status"`
	Code         string             `json:"code,omitempty"` // opaque legacy QR code, empty unless imported
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "registered"
	StatusCheckedIn  RegistrationStatus = "checked-in"
	StatusCheckedOut RegistrationStatus = "checked-out"
	StatusCancelled  RegistrationStatus = "cancelled"
	StatusNoShow     RegistrationStatus = "no-show"
)

type Action string

const (
	ActionCheckIn  Action = "checkin"
	ActionCheckOut Action = "checkout"
)

type Method string

const (
	MethodQR     Method = "qr"
	MethodManual Method = "manual"
)

// Error codes returned by the check-in endpoints. Callers must render the
// named codes distinctly; anything else maps to a generic failure message.
const (
	CodeAlreadyCheckedIn     = "ALREADY_CHECKED_IN"
	CodeNotCheckedIn         = "NOT_CHECKED_IN"
	CodeEmailMismatch        = "EMAIL_MISMATCH"
	CodeQRCodeNotFound       = "QR_CODE_NOT_FOUND"
	CodeRegistrationNotFound = "REGISTRATION_NOT_FOUND"
	CodeRegistrationInactive = "REGISTRATION_INACTIVE"
)

// Advance computes the registration transition for an action. It returns the
// next status, or an empty status and an error code when the transition is
// illegal. Only the forward transitions are ever driven here; registrations
// are created administratively.
func Advance(s RegistrationStatus, a Action) (RegistrationStatus, string) {
	switch a {
	case ActionCheckIn:
		switch s {
		case StatusRegistered:
			return StatusCheckedIn, ""
		case StatusCheckedIn, StatusCheckedOut:
			return "", CodeAlreadyCheckedIn
		default:
			return "", CodeRegistrationInactive
		}
	case ActionCheckOut:
		switch s {
		case StatusCheckedIn:
			return StatusCheckedOut, ""
		case StatusRegistered, StatusCheckedOut:
			return "", CodeNotCheckedIn
		default:
			return "", CodeRegistrationInactive
		}
	}
	return "", CodeRegistrationNotFound
}

// CheckInRecord is the normalized result of one check-in or check-out
// attempt, successful or not.
type CheckInRecord struct {
	ID            string  `json:"id"`
	AttendeeName  *string `json:"attendeeName"`
	AttendeeEmail *string `json:"attendeeEmail"`
	CheckInTime   string  `json:"checkInTime"`
	Status        string  `json:"status"` // success | failed | duplicate
	QRCode        string  `json:"qrCode"`
	ConferenceID  int64   `json:"conferenceId"`
	Method        Method  `json:"checkInMethod"`
	Action        Action  `json:"actionType"`
}

const (
	RecordSuccess   = "success"
	RecordFailed    = "failed"
	RecordDuplicate = "duplicate"
)

// DisplayTime formats a check-in instant the way the records list shows it.
// This is a presentation string, not a canonical timestamp.
func DisplayTime(t time.Time) string {
	return t.Format("Jan 2, 2006 15:04")
}
