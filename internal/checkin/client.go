// Package checkin is the typed client for the check-in REST API. It is a
// thin validator/mutator: membership checks and the registration state
// machine live entirely on the server. This client only shapes requests,
// maps the error taxonomy, and applies the availability fallback.
package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/conferly/api/internal/conferly"
)

// ErrNoConference is returned before any network call when the request has
// no target conference. A conference must be selected first.
var ErrNoConference = errors.New("no conference selected")

// Error is a remote validation failure carrying a taxonomy code.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// IsCode reports whether err is a remote validation error with the given code.
func IsCode(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}

// UserMessage maps a taxonomy code to its dedicated user-facing message.
// Unknown codes get the generic failure message, never a blank one.
func UserMessage(err error) string {
	var ce *Error
	if !errors.As(err, &ce) {
		return "Check-in failed. Please try again."
	}
	switch ce.Code {
	case conferly.CodeAlreadyCheckedIn:
		return "This attendee is already checked in."
	case conferly.CodeNotCheckedIn:
		return "Cannot check out: the attendee has not checked in."
	case conferly.CodeEmailMismatch:
		return "The email does not match the registered attendee for this code."
	case conferly.CodeQRCodeNotFound:
		return "This QR code does not match any registration."
	case conferly.CodeRegistrationNotFound:
		return "No registration found for this attendee at this conference."
	default:
		return "Check-in failed. Please try again."
	}
}

// Warning reports whether the error is a state conflict the caller should
// render as a warning rather than a fatal failure.
func Warning(err error) bool {
	return IsCode(err, conferly.CodeAlreadyCheckedIn) || IsCode(err, conferly.CodeNotCheckedIn)
}

// AttendeeInfo carries the manual check-in identity fields.
type AttendeeInfo struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Request is one check-in or check-out attempt. Either AttendeeID (from a
// structured payload) or QRCode (raw text, possibly legacy) identifies the
// registrant.
type Request struct {
	AttendeeID   int64           `json:"attendeeId,omitempty"`
	QRCode       string          `json:"qrCode,omitempty"`
	ConferenceID int64           `json:"conferenceId"`
	Method       conferly.Method `json:"checkInMethod"`
	SessionID    *int64          `json:"sessionId,omitempty"`
	Action       conferly.Action `json:"actionType,omitempty"`
	AttendeeInfo *AttendeeInfo   `json:"attendeeInfo,omitempty"`
}

// Result is a successful (or offline-synthesized) check-in.
type Result struct {
	Record  conferly.CheckInRecord
	Offline bool // true when synthesized locally after a transport failure
}

// ValidateResult is the outcome of a pre-flight QR validation.
type ValidateResult struct {
	Valid    bool               `json:"valid"`
	Attendee *conferly.Attendee `json:"attendee,omitempty"`
}

// Config controls the client. Timeout bounds every request; zero means the
// 10s default. AllowOfflineFallback opts in to synthesizing a local success
// record when the backend is unreachable. Off by default.
type Config struct {
	BaseURL              string
	Timeout              time.Duration
	AllowOfflineFallback bool
}

type Client struct {
	baseURL  string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[*envelope]
	fallback bool
	logger   *slog.Logger
	now      func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker[*envelope](gobreaker.Settings{
		Name:        "checkin-api",
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 &&
				float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Validation rejections are healthy backend responses; only
		// transport-level failures count against the breaker.
		IsSuccessful: func(err error) bool {
			var ce *Error
			return err == nil || errors.As(err, &ce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		baseURL:  cfg.BaseURL,
		http:     &http.Client{Timeout: timeout},
		cb:       cb,
		fallback: cfg.AllowOfflineFallback,
		logger:   logger,
		now:      time.Now,
	}
}

// envelope is the {success, message, data, error} response shape shared by
// the check-in endpoints.
type envelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Data    *conferly.CheckInRecord `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

// CheckIn submits one check-in or check-out attempt.
//
// Remote validation errors come back as *Error. Transport failures (network
// unreachable, timeout, open circuit, unparseable response) either return
// the transport error, or, with the offline fallback enabled, a locally
// synthesized success record stamped with the client clock.
func (c *Client) CheckIn(ctx context.Context, req Request) (Result, error) {
	if req.ConferenceID <= 0 {
		return Result{}, ErrNoConference
	}
	if req.Action == "" {
		req.Action = conferly.ActionCheckIn
	}
	if req.Method == "" {
		req.Method = conferly.MethodQR
	}

	env, err := c.cb.Execute(func() (*envelope, error) {
		return c.post(ctx, "/checkin", req)
	})
	if err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			return Result{}, ce
		}
		if !c.fallback {
			return Result{}, fmt.Errorf("check-in request: %w", err)
		}
		c.logger.Warn("check-in backend unreachable, synthesizing offline result", "error", err)
		return c.offlineResult(req), nil
	}

	if env.Data == nil {
		if !c.fallback {
			return Result{}, fmt.Errorf("check-in response missing record")
		}
		return c.offlineResult(req), nil
	}
	return Result{Record: *env.Data}, nil
}

func (c *Client) offlineResult(req Request) Result {
	return Result{
		Record: conferly.CheckInRecord{
			ID:           uuid.NewString(),
			CheckInTime:  conferly.DisplayTime(c.now()),
			Status:       conferly.RecordSuccess,
			QRCode:       req.QRCode,
			ConferenceID: req.ConferenceID,
			Method:       req.Method,
			Action:       req.Action,
		},
		Offline: true,
	}
}

// ValidateQR asks the backend whether a code resolves to a registration
// without mutating any state.
func (c *Client) ValidateQR(ctx context.Context, qrCode string, conferenceID int64) (ValidateResult, error) {
	if conferenceID <= 0 {
		return ValidateResult{}, ErrNoConference
	}

	body := map[string]any{"qrCode": qrCode, "conferenceId": conferenceID}
	resp, err := c.do(ctx, http.MethodPost, "/validate-qr", body)
	if err != nil {
		return ValidateResult{}, err
	}
	defer resp.Body.Close()

	var out ValidateResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ValidateResult{}, fmt.Errorf("decoding validate-qr response: %w", err)
	}
	return out, nil
}

// Conferences lists conferences for populating the target-conference picker.
func (c *Client) Conferences(ctx context.Context) ([]conferly.Conference, error) {
	resp, err := c.do(ctx, http.MethodGet, "/conferences", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []conferly.Conference
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding conferences: %w", err)
	}
	return out, nil
}

// CheckIns lists recorded check-ins, optionally scoped to one conference.
func (c *Client) CheckIns(ctx context.Context, conferenceID int64) ([]conferly.CheckInRecord, error) {
	path := "/checkins"
	if conferenceID > 0 {
		path += "?conferenceId=" + url.QueryEscape(strconv.FormatInt(conferenceID, 10))
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out []conferly.CheckInRecord
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding check-ins: %w", err)
	}
	return out, nil
}

// post sends a request and interprets the shared envelope. Error responses
// with a parseable body become *Error; everything else is a transport error.
func (c *Client) post(ctx context.Context, path string, body any) (*envelope, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unparseable response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		if env.Error == "" && resp.StatusCode >= 500 {
			// No error code to map: treat as transport-level failure.
			return nil, fmt.Errorf("backend error (status %d): %s", resp.StatusCode, env.Message)
		}
		return nil, &Error{Code: env.Error, Message: env.Message}
	}
	return &env, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	return resp, nil
}
