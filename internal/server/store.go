package server

import (
	"context"
	"errors"

	"github.com/conferly/api/internal/conferly"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type adminAccount struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
}

type adminSession struct {
	AdminID string
	Email   string
	Role    string
}

// Store is the persistence surface for the check-in service.
type Store interface {
	ListConferences(ctx context.Context) ([]conferly.Conference, error)
	GetConference(ctx context.Context, id int64) (conferly.Conference, error)
	CreateConference(ctx context.Context, name, date string, status conferly.ConferenceStatus) (conferly.Conference, error)
	UpdateConference(ctx context.Context, c conferly.Conference) error
	DeleteConference(ctx context.Context, id int64) error

	ListAttendees(ctx context.Context) ([]conferly.Attendee, error)
	GetAttendee(ctx context.Context, id int64) (conferly.Attendee, error)
	GetAttendeeByEmail(ctx context.Context, email string) (conferly.Attendee, error)
	CreateAttendee(ctx context.Context, name, email string) (conferly.Attendee, error)
	UpdateAttendee(ctx context.Context, a conferly.Attendee) error
	DeleteAttendee(ctx context.Context, id int64) error

	ListSessions(ctx context.Context, conferenceID int64) ([]conferly.Session, error)
	GetSession(ctx context.Context, id int64) (conferly.Session, error)
	CreateSession(ctx context.Context, s conferly.Session) (conferly.Session, error)
	UpdateSession(ctx context.Context, s conferly.Session) error
	DeleteSession(ctx context.Context, id int64) error

	CreateRegistration(ctx context.Context, attendeeID, conferenceID int64, sessionID *int64, code string) (conferly.Registration, error)
	GetRegistration(ctx context.Context, attendeeID, conferenceID int64, sessionID *int64) (conferly.Registration, error)
	GetRegistrationByCode(ctx context.Context, code string) (conferly.Registration, error)
	ListRegistrations(ctx context.Context, conferenceID int64) ([]conferly.Registration, error)
	SetRegistrationStatus(ctx context.Context, id int64, status conferly.RegistrationStatus) error

	InsertCheckIn(ctx context.Context, rec conferly.CheckInRecord) error
	ListCheckIns(ctx context.Context, conferenceID int64) ([]conferly.CheckInRecord, error)

	AdminByEmail(ctx context.Context, email string) (adminAccount, error)
	CreateAdmin(ctx context.Context, email, passwordHash, role string) error
	CountAdmins(ctx context.Context) (int, error)
	CreateAdminSession(ctx context.Context, adminID string) (string, error)
	AdminFromSession(ctx context.Context, sessionID string) (adminSession, error)
	DeleteAdminSession(ctx context.Context, sessionID string) error
}
