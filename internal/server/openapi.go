package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/conferly/api/internal/conferly"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Conferly API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Conference check-in backend: QR name cards, attendee registration, and check-in/check-out processing.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/conferences
	listConfs, _ := r.NewOperationContext(http.MethodGet, "/api/conferences")
	listConfs.SetSummary("List conferences")
	listConfs.SetDescription("Returns all conferences, newest first. Public, used to populate the scan-station conference picker.")
	listConfs.AddRespStructure([]conferly.Conference{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listConfs)

	// GET /api/conferences/{id}
	getConf, _ := r.NewOperationContext(http.MethodGet, "/api/conferences/{id}")
	getConf.SetSummary("Get conference")
	getConf.AddRespStructure(conferly.Conference{}, openapi.WithHTTPStatus(http.StatusOK))
	getConf.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getConf)

	// GET /api/conferences/{id}/sessions
	listSessions, _ := r.NewOperationContext(http.MethodGet, "/api/conferences/{id}/sessions")
	listSessions.SetSummary("List sessions")
	listSessions.SetDescription("Returns the conference's scheduled sessions in start order.")
	listSessions.AddRespStructure([]conferly.Session{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listSessions)

	// POST /api/checkin
	postCheckin, _ := r.NewOperationContext(http.MethodPost, "/api/checkin")
	postCheckin.SetSummary("Check in or out")
	postCheckin.SetDescription("Validates a QR payload, legacy code, or manual attendee reference and drives the registration state machine. Rate limited per IP.")
	postCheckin.AddReqStructure(CheckInRequest{})
	postCheckin.AddRespStructure(CheckInResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postCheckin.AddRespStructure(CheckInResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postCheckin.AddRespStructure(CheckInResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	postCheckin.AddRespStructure(CheckInResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(postCheckin)

	// POST /api/validate-qr
	postValidate, _ := r.NewOperationContext(http.MethodPost, "/api/validate-qr")
	postValidate.SetSummary("Validate QR code")
	postValidate.SetDescription("Resolves a code against registrations without mutating state.")
	postValidate.AddReqStructure(ValidateQRRequest{})
	postValidate.AddRespStructure(ValidateQRResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postValidate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postValidate)

	// POST /api/admin/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/admin/login")
	postLogin.SetSummary("Admin login")
	postLogin.SetDescription("Authenticate with email and password. Sets admin_session cookie.")
	postLogin.AddReqStructure(AdminLoginRequest{})
	postLogin.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/admin/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/admin/logout")
	postLogout.SetSummary("Admin logout")
	postLogout.SetDescription("Clears admin session and cookie.")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/admin/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/admin/me")
	getMe.SetSummary("Current admin")
	getMe.SetDescription("Returns the currently authenticated admin. Requires admin_session cookie.")
	getMe.AddRespStructure(AdminMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	// GET /api/checkins
	listCheckins, _ := r.NewOperationContext(http.MethodGet, "/api/checkins")
	listCheckins.SetSummary("List check-ins")
	listCheckins.SetDescription("Returns recorded check-in attempts, optionally filtered by conferenceId. Requires staff session.")
	listCheckins.AddRespStructure([]conferly.CheckInRecord{}, openapi.WithHTTPStatus(http.StatusOK))
	listCheckins.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listCheckins)

	// GET /api/checkins/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/checkins/events")
	getEvents.SetSummary("SSE check-in stream")
	getEvents.SetDescription("Server-Sent Events stream of live check-in events for one conference. Requires staff session.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/conferences/{id}/attendees/{attendeeID}/namecard
	getNamecard, _ := r.NewOperationContext(http.MethodGet, "/api/conferences/{id}/attendees/{attendeeID}/namecard")
	getNamecard.SetSummary("Attendee name card")
	getNamecard.SetDescription("Renders the attendee's QR name card as PNG. Optional sessionId query parameter scopes the card to a session. Requires staff session.")
	getNamecard.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("image/png"))
	getNamecard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getNamecard)

	// POST /api/conferences
	createConf, _ := r.NewOperationContext(http.MethodPost, "/api/conferences")
	createConf.SetSummary("Create conference")
	createConf.SetDescription("Requires admin session.")
	createConf.AddReqStructure(ConferenceRequest{})
	createConf.AddRespStructure(conferly.Conference{}, openapi.WithHTTPStatus(http.StatusCreated))
	createConf.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createConf)

	// PUT /api/conferences/{id}
	updateConf, _ := r.NewOperationContext(http.MethodPut, "/api/conferences/{id}")
	updateConf.SetSummary("Update conference")
	updateConf.AddReqStructure(ConferenceRequest{})
	updateConf.AddRespStructure(conferly.Conference{}, openapi.WithHTTPStatus(http.StatusOK))
	updateConf.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(updateConf)

	// DELETE /api/conferences/{id}
	deleteConf, _ := r.NewOperationContext(http.MethodDelete, "/api/conferences/{id}")
	deleteConf.SetSummary("Delete conference")
	deleteConf.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteConf.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(deleteConf)

	// POST /api/conferences/{id}/sessions
	createSession, _ := r.NewOperationContext(http.MethodPost, "/api/conferences/{id}/sessions")
	createSession.SetSummary("Create session")
	createSession.AddReqStructure(SessionRequest{})
	createSession.AddRespStructure(conferly.Session{}, openapi.WithHTTPStatus(http.StatusCreated))
	createSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(createSession)

	// GET /api/attendees
	listAttendees, _ := r.NewOperationContext(http.MethodGet, "/api/attendees")
	listAttendees.SetSummary("List attendees")
	listAttendees.AddRespStructure([]conferly.Attendee{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(listAttendees)

	// POST /api/attendees
	createAttendee, _ := r.NewOperationContext(http.MethodPost, "/api/attendees")
	createAttendee.SetSummary("Create attendee")
	createAttendee.AddReqStructure(AttendeeRequest{})
	createAttendee.AddRespStructure(conferly.Attendee{}, openapi.WithHTTPStatus(http.StatusCreated))
	createAttendee.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createAttendee)

	// POST /api/conferences/{id}/registrations
	createReg, _ := r.NewOperationContext(http.MethodPost, "/api/conferences/{id}/registrations")
	createReg.SetSummary("Register attendee")
	createReg.SetDescription("Creates a registration in the `registered` state, the only administrative entry into the check-in state machine.")
	createReg.AddReqStructure(RegistrationRequest{})
	createReg.AddRespStructure(conferly.Registration{}, openapi.WithHTTPStatus(http.StatusCreated))
	createReg.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(createReg)

	// PUT /api/registrations/{id}/status
	setRegStatus, _ := r.NewOperationContext(http.MethodPut, "/api/registrations/{id}/status")
	setRegStatus.SetSummary("Set registration status")
	setRegStatus.SetDescription("Administrative side branches only: cancelled or no-show.")
	setRegStatus.AddReqStructure(RegistrationStatusRequest{})
	setRegStatus.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	setRegStatus.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(setRegStatus)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
