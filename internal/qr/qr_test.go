package qr

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/conferly/api/internal/payload"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	session := int64(3)
	cases := []struct {
		name                     string
		attendeeID, conferenceID int64
		sessionID                *int64
	}{
		{"conference scoped", 42, 7, nil},
		{"session scoped", 42, 7, &session},
		{"large ids", 987654321, 123456789, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := payload.New(tc.attendeeID, tc.conferenceID, tc.sessionID)
			enc, err := Encode(p)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			text, err := DecodeReader(bytes.NewReader(enc.PNG))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if text != enc.Content {
				t.Fatalf("decoded text differs:\n got %s\nwant %s", text, enc.Content)
			}

			d := payload.Parse(text)
			if d.Kind != payload.KindPayload {
				t.Fatal("decoded text did not parse as structured payload")
			}
			if d.Payload.AttendeeID != tc.attendeeID || d.Payload.ConferenceID != tc.conferenceID {
				t.Errorf("ids did not survive: %+v", d.Payload)
			}
			switch {
			case tc.sessionID == nil && d.Payload.SessionID != nil:
				t.Error("session appeared out of nowhere")
			case tc.sessionID != nil && (d.Payload.SessionID == nil || *d.Payload.SessionID != *tc.sessionID):
				t.Errorf("session did not survive: %+v", d.Payload.SessionID)
			}
		})
	}
}

func TestEncodeFallsBackWithoutChecksum(t *testing.T) {
	// A checksum long enough to exceed the symbol capacity forces the first
	// render to fail; the retry strips it and must succeed.
	p := payload.New(42, 7, nil)
	p.Checksum = strings.Repeat("a", 4000)

	enc, err := Encode(p)
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}

	d := payload.Parse(enc.Content)
	if d.Kind != payload.KindPayload {
		t.Fatal("fallback content did not parse as structured payload")
	}
	if d.Payload.Checksum != "" {
		t.Error("fallback payload still carries a checksum")
	}
	if d.Payload.AttendeeID != 42 || d.Payload.ConferenceID != 7 {
		t.Errorf("fallback dropped identifying fields: %+v", d.Payload)
	}
}

func TestEncodeRawLegacyCode(t *testing.T) {
	enc, err := EncodeRaw("LEGACY-QR-001")
	if err != nil {
		t.Fatal(err)
	}
	text, err := DecodeReader(bytes.NewReader(enc.PNG))
	if err != nil {
		t.Fatal(err)
	}
	if text != "LEGACY-QR-001" {
		t.Errorf("got %q", text)
	}
	if d := payload.Parse(text); d.Kind != payload.KindLegacy {
		t.Error("legacy code parsed as structured payload")
	}
}

func TestDecodeBlankImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.White)
		}
	}

	_, err := DecodeImage(img)
	if !errors.Is(err, ErrNoSymbol) {
		t.Errorf("expected ErrNoSymbol, got %v", err)
	}
}

func TestDecodeGarbageUpload(t *testing.T) {
	_, err := DecodeReader(bytes.NewReader([]byte("not an image")))
	if err == nil {
		t.Fatal("expected error for non-image upload")
	}
	if errors.Is(err, ErrNoSymbol) {
		t.Error("unreadable upload should not report as missing symbol")
	}
}

func TestDataURI(t *testing.T) {
	enc, err := Encode(payload.New(1, 1, nil))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(enc.DataURI(), "data:image/png;base64,") {
		t.Errorf("unexpected data URI prefix: %.40s", enc.DataURI())
	}
}
