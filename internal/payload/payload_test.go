package payload

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestChecksumDeterministic(t *testing.T) {
	session := int64(3)
	a := Checksum(42, 7, &session, 1700000000000)
	b := Checksum(42, 7, &session, 1700000000000)
	if a != b {
		t.Errorf("same inputs produced different checksums: %q vs %q", a, b)
	}
}

func TestChecksumSensitive(t *testing.T) {
	session := int64(3)
	base := Checksum(42, 7, &session, 1700000000000)

	cases := map[string]string{
		"attendee":   Checksum(43, 7, &session, 1700000000000),
		"conference": Checksum(42, 8, &session, 1700000000000),
		"session":    Checksum(42, 7, nil, 1700000000000),
		"timestamp":  Checksum(42, 7, &session, 1700000000001),
	}
	for name, got := range cases {
		if got == base {
			t.Errorf("changing %s did not change the checksum", name)
		}
	}
}

func TestChecksumHex(t *testing.T) {
	sum := Checksum(1, 1, nil, 0)
	if sum == "" {
		t.Fatal("empty checksum")
	}
	if strings.TrimLeft(sum, "0123456789abcdef") != "" {
		t.Errorf("checksum %q is not lowercase hex", sum)
	}
}

func TestNewPayloadValid(t *testing.T) {
	session := int64(12)
	p := New(42, 7, &session)

	if err := p.Validate(); err != nil {
		t.Fatalf("fresh payload invalid: %v", err)
	}
	if !p.ChecksumOK() {
		t.Error("fresh payload failed its own checksum")
	}
	if p.Type != TypeAttendeeRegistration || p.Version != VersionV1 {
		t.Errorf("unexpected type/version: %q %q", p.Type, p.Version)
	}
}

func TestEncodeOmitsAbsentSession(t *testing.T) {
	p := New(42, 7, nil)
	s, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(s, "sessionId") {
		t.Errorf("nil session serialized: %s", s)
	}
}

func TestParseStructured(t *testing.T) {
	raw := `{"type":"attendee_registration","attendeeId":42,"conferenceId":7,"timestamp":1700000000000,"checksum":"a1b2","version":"1.0"}`
	d := Parse(raw)

	if d.Kind != KindPayload {
		t.Fatalf("expected structured payload, got kind %d", d.Kind)
	}
	if d.Payload.AttendeeID != 42 || d.Payload.ConferenceID != 7 {
		t.Errorf("wrong ids: %+v", d.Payload)
	}
	if d.Raw != raw {
		t.Error("raw text not preserved")
	}
}

func TestParseLegacyFallback(t *testing.T) {
	for _, raw := range []string{
		"LEGACY-QR-001",
		`{"type":"ticket","id":9}`,   // JSON, wrong discriminator
		`{"attendeeId":42}`,          // JSON, no discriminator
		`{"type":"attendee_registra`, // truncated
		"",
	} {
		d := Parse(raw)
		if d.Kind != KindLegacy {
			t.Errorf("Parse(%q): expected legacy fallback", raw)
		}
		if d.Raw != raw {
			t.Errorf("Parse(%q): raw not passed through unchanged", raw)
		}
	}
}

func TestRoundTripThroughJSON(t *testing.T) {
	session := int64(5)
	p := New(42, 7, &session)
	s, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}

	d := Parse(s)
	if d.Kind != KindPayload {
		t.Fatal("encoded payload did not parse as structured")
	}
	if d.Payload.AttendeeID != 42 || d.Payload.ConferenceID != 7 {
		t.Errorf("ids did not survive round trip: %+v", d.Payload)
	}
	if d.Payload.SessionID == nil || *d.Payload.SessionID != 5 {
		t.Errorf("session did not survive round trip: %+v", d.Payload.SessionID)
	}
	if !d.Payload.ChecksumOK() {
		t.Error("checksum did not survive round trip")
	}
}

func TestValidateRejectsBadIDs(t *testing.T) {
	bad := int64(-1)
	cases := []Payload{
		{Type: TypeAttendeeRegistration, AttendeeID: 0, ConferenceID: 7},
		{Type: TypeAttendeeRegistration, AttendeeID: 42, ConferenceID: -1},
		{Type: TypeAttendeeRegistration, AttendeeID: 42, ConferenceID: 7, SessionID: &bad},
		{Type: "other", AttendeeID: 42, ConferenceID: 7},
	}
	for i, p := range cases {
		if err := p.Validate(); err == nil {
			b, _ := json.Marshal(p)
			t.Errorf("case %d: expected validation error for %s", i, b)
		}
	}
}
