package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/conferly/api/internal/conferly"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc, fallback bool) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:              srv.URL,
		Timeout:              2 * time.Second,
		AllowOfflineFallback: fallback,
	}, testLogger())
}

func successHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		name := "Ada Lovelace"
		json.NewEncoder(w).Encode(envelope{
			Success: true,
			Message: "checked in",
			Data: &conferly.CheckInRecord{
				ID:           "rec-1",
				AttendeeName: &name,
				CheckInTime:  "Nov 14, 2023 09:30",
				Status:       conferly.RecordSuccess,
				QRCode:       req.QRCode,
				ConferenceID: req.ConferenceID,
				Method:       req.Method,
				Action:       req.Action,
			},
		})
	}
}

func TestCheckInSuccess(t *testing.T) {
	c := newTestClient(t, successHandler(t), false)

	res, err := c.CheckIn(context.Background(), Request{
		QRCode:       `{"type":"attendee_registration","attendeeId":42,"conferenceId":7,"timestamp":1700000000000,"checksum":"a1b2","version":"1.0"}`,
		ConferenceID: 7,
		Method:       conferly.MethodQR,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Record.Status != conferly.RecordSuccess {
		t.Errorf("status = %q", res.Record.Status)
	}
	if res.Record.ConferenceID != 7 {
		t.Errorf("conferenceId = %d", res.Record.ConferenceID)
	}
	if res.Offline {
		t.Error("live result flagged offline")
	}
}

func TestCheckInRequiresConference(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, false)

	_, err := c.CheckIn(context.Background(), Request{QRCode: "LEGACY-QR-001"})
	if !errors.Is(err, ErrNoConference) {
		t.Fatalf("got %v, want ErrNoConference", err)
	}
	if called {
		t.Error("precondition violation reached the network")
	}
}

func TestDuplicateCheckIn(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			successHandler(t)(w, r)
			return
		}
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(envelope{
			Success: false,
			Message: "already checked in",
			Error:   conferly.CodeAlreadyCheckedIn,
		})
	}, false)

	req := Request{QRCode: "LEGACY-QR-001", ConferenceID: 7, Method: conferly.MethodQR}

	first, err := c.CheckIn(context.Background(), req)
	if err != nil {
		t.Fatalf("first check-in: %v", err)
	}
	if first.Record.Status != conferly.RecordSuccess {
		t.Errorf("first status = %q", first.Record.Status)
	}

	_, err = c.CheckIn(context.Background(), req)
	if !IsCode(err, conferly.CodeAlreadyCheckedIn) {
		t.Fatalf("second check-in: got %v, want ALREADY_CHECKED_IN", err)
	}
	if !Warning(err) {
		t.Error("duplicate should be a warning, not fatal")
	}
}

func TestEmailMismatchDistinctMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(envelope{
			Success: false,
			Message: "email mismatch",
			Error:   conferly.CodeEmailMismatch,
		})
	}, false)

	_, err := c.CheckIn(context.Background(), Request{
		ConferenceID: 7,
		Method:       conferly.MethodManual,
		QRCode:       "LEGACY-QR-001",
		AttendeeInfo: &AttendeeInfo{Email: "wrong@x.com"},
	})
	if !IsCode(err, conferly.CodeEmailMismatch) {
		t.Fatalf("got %v, want EMAIL_MISMATCH", err)
	}

	msg := UserMessage(err)
	if msg == UserMessage(errors.New("anything else")) {
		t.Error("email mismatch rendered with the generic fallback message")
	}
}

func TestUnknownCodeGetsGenericMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(envelope{
			Success: false,
			Message: "quota exceeded",
			Error:   "CHECKIN_QUOTA_EXCEEDED",
		})
	}, false)

	_, err := c.CheckIn(context.Background(), Request{QRCode: "x", ConferenceID: 7})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsCode(err, "CHECKIN_QUOTA_EXCEEDED") {
		t.Fatalf("code not surfaced: %v", err)
	}
	if UserMessage(err) == "" {
		t.Error("unknown code produced a blank message")
	}
	if Warning(err) {
		t.Error("unknown code treated as warning")
	}
}

func TestOfflineFallbackDisabled(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // unreachable from here on

	c := NewClient(Config{BaseURL: srv.URL, Timeout: time.Second}, testLogger())

	_, err := c.CheckIn(context.Background(), Request{QRCode: "x", ConferenceID: 7})
	if err == nil {
		t.Fatal("expected transport error with fallback disabled")
	}
	var ce *Error
	if errors.As(err, &ce) {
		t.Errorf("transport failure mapped to validation error: %v", ce)
	}
}

func TestOfflineFallbackSynthesizesSuccess(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(Config{
		BaseURL:              srv.URL,
		Timeout:              time.Second,
		AllowOfflineFallback: true,
	}, testLogger())
	c.now = func() time.Time { return time.Date(2023, 11, 14, 9, 30, 0, 0, time.UTC) }

	res, err := c.CheckIn(context.Background(), Request{
		QRCode:       "LEGACY-QR-001",
		ConferenceID: 7,
		Method:       conferly.MethodQR,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Offline {
		t.Error("synthesized result not flagged offline")
	}
	if res.Record.Status != conferly.RecordSuccess {
		t.Errorf("status = %q", res.Record.Status)
	}
	if res.Record.ConferenceID != 7 || res.Record.QRCode != "LEGACY-QR-001" {
		t.Errorf("request fields not carried into record: %+v", res.Record)
	}
	if res.Record.CheckInTime != "Nov 14, 2023 09:30" {
		t.Errorf("check-in time = %q", res.Record.CheckInTime)
	}
	if res.Record.ID == "" {
		t.Error("missing record id")
	}
}

func TestValidationErrorNeverFallsBack(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(envelope{
			Success: false,
			Message: "no such code",
			Error:   conferly.CodeQRCodeNotFound,
		})
	}, true)

	_, err := c.CheckIn(context.Background(), Request{QRCode: "nope", ConferenceID: 7})
	if !IsCode(err, conferly.CodeQRCodeNotFound) {
		t.Fatalf("got %v, want QR_CODE_NOT_FOUND surfaced despite fallback being enabled", err)
	}
}

func TestValidateQR(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/validate-qr" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ValidateResult{
			Valid:    true,
			Attendee: &conferly.Attendee{ID: 42, Name: "Ada Lovelace", Email: "ada@x.com"},
		})
	}, false)

	res, err := c.ValidateQR(context.Background(), "LEGACY-QR-001", 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.Attendee == nil || res.Attendee.ID != 42 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestConferencesList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]conferly.Conference{
			{ID: 7, Name: "GopherCon", Date: "2023-11-14", Status: conferly.ConferenceActive},
		})
	}, false)

	list, err := c.Conferences(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != 7 {
		t.Errorf("unexpected list: %+v", list)
	}
}
