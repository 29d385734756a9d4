// Package payload implements the QR wire contract: the JSON structure
// embedded in attendee name cards, its rolling-hash checksum, and the
// parse-with-legacy-fallback dispatch used by every scanner.
package payload

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TypeAttendeeRegistration is the discriminator carried by every structured
// payload. Text without it is treated as an opaque legacy code.
const TypeAttendeeRegistration = "attendee_registration"

const (
	VersionV1 = "1.0"
	VersionV2 = "2.0"
)

// Payload is the structured content of an attendee QR code.
type Payload struct {
	Type         string `json:"type"`
	AttendeeID   int64  `json:"attendeeId"`
	ConferenceID int64  `json:"conferenceId"`
	SessionID    *int64 `json:"sessionId,omitempty"`
	Timestamp    int64  `json:"timestamp"` // creation instant, ms since epoch
	Checksum     string `json:"checksum,omitempty"`
	Version      string `json:"version"`
	Issuer       string `json:"issuer,omitempty"` // v2 only
}

// New builds a v1 payload for the given attendee and conference, stamped
// with the current time and checksum.
func New(attendeeID, conferenceID int64, sessionID *int64) Payload {
	ts := time.Now().UnixMilli()
	return Payload{
		Type:         TypeAttendeeRegistration,
		AttendeeID:   attendeeID,
		ConferenceID: conferenceID,
		SessionID:    sessionID,
		Timestamp:    ts,
		Checksum:     Checksum(attendeeID, conferenceID, sessionID, ts),
		Version:      VersionV1,
	}
}

// Checksum derives the integrity hint from the payload's identifying fields:
// a 31-multiplier rolling hash with 32-bit signed wraparound, absolute value,
// lowercase hex. It detects accidental corruption only; true validation
// happens server-side against registration state.
func Checksum(attendeeID, conferenceID int64, sessionID *int64, timestamp int64) string {
	session := ""
	if sessionID != nil {
		session = strconv.FormatInt(*sessionID, 10)
	}
	s := fmt.Sprintf("%d:%d:%s:%d", attendeeID, conferenceID, session, timestamp)

	var h int32
	for i := 0; i < len(s); i++ {
		h = h*31 + int32(s[i])
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}

// Validate reports whether the payload satisfies the structural invariants.
func (p Payload) Validate() error {
	if p.Type != TypeAttendeeRegistration {
		return fmt.Errorf("unexpected payload type %q", p.Type)
	}
	if p.AttendeeID <= 0 {
		return fmt.Errorf("attendeeId must be positive, got %d", p.AttendeeID)
	}
	if p.ConferenceID <= 0 {
		return fmt.Errorf("conferenceId must be positive, got %d", p.ConferenceID)
	}
	if p.SessionID != nil && *p.SessionID <= 0 {
		return fmt.Errorf("sessionId must be positive when present, got %d", *p.SessionID)
	}
	return nil
}

// ChecksumOK recomputes the checksum from the payload's own fields and
// compares. Payloads without a checksum (the degraded encoder fallback, and
// all v2 issuer-signed cards) pass trivially.
func (p Payload) ChecksumOK() bool {
	if p.Checksum == "" {
		return true
	}
	return p.Checksum == Checksum(p.AttendeeID, p.ConferenceID, p.SessionID, p.Timestamp)
}

func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encoding payload: %w", err)
	}
	return string(b), nil
}

// Kind tags the two shapes a scanned code can take.
type Kind int

const (
	KindLegacy Kind = iota
	KindPayload
)

// Decoded is the result of interpreting raw QR text. Exactly one shape is
// populated: a structured Payload, or the raw string passed through
// unchanged for legacy codes.
type Decoded struct {
	Kind    Kind
	Payload Payload // valid only when Kind == KindPayload
	Raw     string  // always the original text
}

// Parse interprets raw QR text. JSON carrying the attendee-registration
// discriminator becomes a structured payload; anything else (non-JSON,
// or JSON with a missing or foreign type) falls back to a legacy code.
// Parse never fails: the fallback is mandatory for backward compatibility.
func Parse(raw string) Decoded {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil || p.Type != TypeAttendeeRegistration {
		return Decoded{Kind: KindLegacy, Raw: raw}
	}
	return Decoded{Kind: KindPayload, Payload: p, Raw: raw}
}
