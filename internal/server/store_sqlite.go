package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conferly/api/internal/conferly"
)

// SQLiteStore implements Store on a libSQL database. The schema is created
// on construction; CREATE TABLE IF NOT EXISTS keeps it idempotent across
// restarts.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS conferences (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			date       TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'active',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attendees (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			conference_id INTEGER NOT NULL REFERENCES conferences(id) ON DELETE CASCADE,
			title         TEXT NOT NULL,
			room          TEXT NOT NULL DEFAULT '',
			starts_at     TEXT NOT NULL,
			ends_at       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			attendee_id   INTEGER NOT NULL REFERENCES attendees(id) ON DELETE CASCADE,
			conference_id INTEGER NOT NULL REFERENCES conferences(id) ON DELETE CASCADE,
			session_id    INTEGER REFERENCES sessions(id) ON DELETE CASCADE,
			status        TEXT NOT NULL DEFAULT 'registered',
			code          TEXT UNIQUE,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS checkins (
			id            TEXT PRIMARY KEY,
			attendee_name  TEXT,
			attendee_email TEXT,
			check_in_time TEXT NOT NULL,
			status        TEXT NOT NULL,
			qr_code       TEXT NOT NULL,
			conference_id INTEGER NOT NULL,
			method        TEXT NOT NULL DEFAULT 'qr',
			action        TEXT NOT NULL DEFAULT 'checkin',
			created_at    TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS admins (
			id            TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL DEFAULT 'staff'
		)`,
		`CREATE TABLE IF NOT EXISTS admin_sessions (
			id         TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			admin_id   TEXT NOT NULL REFERENCES admins(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL
		)`,
	} {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("creating table: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseText(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// --- conferences ---

func (s *SQLiteStore) ListConferences(ctx context.Context) ([]conferly.Conference, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, status, created_at FROM conferences ORDER BY date DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conferly.Conference
	for rows.Next() {
		var c conferly.Conference
		var created string
		if err := rows.Scan(&c.ID, &c.Name, &c.Date, &c.Status, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = parseText(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetConference(ctx context.Context, id int64) (conferly.Conference, error) {
	var c conferly.Conference
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, date, status, created_at FROM conferences WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Date, &c.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	c.CreatedAt = parseText(created)
	return c, err
}

func (s *SQLiteStore) CreateConference(ctx context.Context, name, date string, status conferly.ConferenceStatus) (conferly.Conference, error) {
	c := conferly.Conference{Name: name, Date: date, Status: status}
	created := nowText()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO conferences (name, date, status, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, name, date, status, created).Scan(&c.ID)
	c.CreatedAt = parseText(created)
	return c, err
}

func (s *SQLiteStore) UpdateConference(ctx context.Context, c conferly.Conference) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE conferences SET name = ?, date = ?, status = ? WHERE id = ?
	`, c.Name, c.Date, c.Status, c.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteConference(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conferences WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- attendees ---

func (s *SQLiteStore) ListAttendees(ctx context.Context) ([]conferly.Attendee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, created_at FROM attendees ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conferly.Attendee
	for rows.Next() {
		var a conferly.Attendee
		var created string
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &created); err != nil {
			return nil, err
		}
		a.CreatedAt = parseText(created)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetAttendee(ctx context.Context, id int64) (conferly.Attendee, error) {
	var a conferly.Attendee
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM attendees WHERE id = ?
	`, id).Scan(&a.ID, &a.Name, &a.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	a.CreatedAt = parseText(created)
	return a, err
}

func (s *SQLiteStore) GetAttendeeByEmail(ctx context.Context, email string) (conferly.Attendee, error) {
	var a conferly.Attendee
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, created_at FROM attendees WHERE email = ?
	`, strings.ToLower(email)).Scan(&a.ID, &a.Name, &a.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	a.CreatedAt = parseText(created)
	return a, err
}

func (s *SQLiteStore) CreateAttendee(ctx context.Context, name, email string) (conferly.Attendee, error) {
	a := conferly.Attendee{Name: name, Email: strings.ToLower(email)}
	created := nowText()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO attendees (name, email, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`, a.Name, a.Email, created).Scan(&a.ID)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return a, ErrDuplicate
	}
	a.CreatedAt = parseText(created)
	return a, err
}

func (s *SQLiteStore) UpdateAttendee(ctx context.Context, a conferly.Attendee) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE attendees SET name = ?, email = ? WHERE id = ?
	`, a.Name, strings.ToLower(a.Email), a.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteAttendee(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendees WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- sessions ---

func (s *SQLiteStore) ListSessions(ctx context.Context, conferenceID int64) ([]conferly.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conference_id, title, room, starts_at, ends_at
		FROM sessions WHERE conference_id = ? ORDER BY starts_at
	`, conferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conferly.Session
	for rows.Next() {
		var sess conferly.Session
		var starts, ends string
		if err := rows.Scan(&sess.ID, &sess.ConferenceID, &sess.Title, &sess.Room, &starts, &ends); err != nil {
			return nil, err
		}
		sess.StartsAt = parseText(starts)
		sess.EndsAt = parseText(ends)
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (conferly.Session, error) {
	var sess conferly.Session
	var starts, ends string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conference_id, title, room, starts_at, ends_at FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.ConferenceID, &sess.Title, &sess.Room, &starts, &ends)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, ErrNotFound
	}
	sess.StartsAt = parseText(starts)
	sess.EndsAt = parseText(ends)
	return sess, err
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess conferly.Session) (conferly.Session, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sessions (conference_id, title, room, starts_at, ends_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`, sess.ConferenceID, sess.Title, sess.Room,
		sess.StartsAt.UTC().Format(time.RFC3339),
		sess.EndsAt.UTC().Format(time.RFC3339)).Scan(&sess.ID)
	return sess, err
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, sess conferly.Session) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET title = ?, room = ?, starts_at = ?, ends_at = ? WHERE id = ?
	`, sess.Title, sess.Room,
		sess.StartsAt.UTC().Format(time.RFC3339),
		sess.EndsAt.UTC().Format(time.RFC3339), sess.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- registrations ---

func (s *SQLiteStore) CreateRegistration(ctx context.Context, attendeeID, conferenceID int64, sessionID *int64, code string) (conferly.Registration, error) {
	// SQLite UNIQUE treats NULLs as distinct, so the session-less uniqueness
	// check has to happen here.
	if _, err := s.GetRegistration(ctx, attendeeID, conferenceID, sessionID); err == nil {
		return conferly.Registration{}, ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return conferly.Registration{}, err
	}

	reg := conferly.Registration{
		AttendeeID:   attendeeID,
		ConferenceID: conferenceID,
		SessionID:    sessionID,
		Status:       conferly.StatusRegistered,
		Code:         code,
	}
	now := nowText()
	var codeVal any
	if code != "" {
		codeVal = code
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO registrations (attendee_id, conference_id, session_id, status, code, created_at, updated_at)
		VALUES (?, ?, ?, 'registered', ?, ?, ?)
		RETURNING id
	`, attendeeID, conferenceID, sessionID, codeVal, now, now).Scan(&reg.ID)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return reg, ErrDuplicate
	}
	reg.CreatedAt = parseText(now)
	reg.UpdatedAt = reg.CreatedAt
	return reg, err
}

func scanRegistration(row *sql.Row) (conferly.Registration, error) {
	var reg conferly.Registration
	var sessionID sql.NullInt64
	var code sql.NullString
	var created, updated string
	err := row.Scan(&reg.ID, &reg.AttendeeID, &reg.ConferenceID, &sessionID, &reg.Status, &code, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return reg, ErrNotFound
	}
	if err != nil {
		return reg, err
	}
	if sessionID.Valid {
		reg.SessionID = &sessionID.Int64
	}
	reg.Code = code.String
	reg.CreatedAt = parseText(created)
	reg.UpdatedAt = parseText(updated)
	return reg, nil
}

func (s *SQLiteStore) GetRegistration(ctx context.Context, attendeeID, conferenceID int64, sessionID *int64) (conferly.Registration, error) {
	q := `
		SELECT id, attendee_id, conference_id, session_id, status, code, created_at, updated_at
		FROM registrations
		WHERE attendee_id = ? AND conference_id = ? AND session_id IS NULL
	`
	args := []any{attendeeID, conferenceID}
	if sessionID != nil {
		q = strings.Replace(q, "session_id IS NULL", "session_id = ?", 1)
		args = append(args, *sessionID)
	}
	return scanRegistration(s.db.QueryRowContext(ctx, q, args...))
}

func (s *SQLiteStore) GetRegistrationByCode(ctx context.Context, code string) (conferly.Registration, error) {
	return scanRegistration(s.db.QueryRowContext(ctx, `
		SELECT id, attendee_id, conference_id, session_id, status, code, created_at, updated_at
		FROM registrations WHERE code = ?
	`, code))
}

func (s *SQLiteStore) ListRegistrations(ctx context.Context, conferenceID int64) ([]conferly.Registration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, attendee_id, conference_id, session_id, status, code, created_at, updated_at
		FROM registrations WHERE conference_id = ? ORDER BY id
	`, conferenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conferly.Registration
	for rows.Next() {
		var reg conferly.Registration
		var sessionID sql.NullInt64
		var code sql.NullString
		var created, updated string
		if err := rows.Scan(&reg.ID, &reg.AttendeeID, &reg.ConferenceID, &sessionID, &reg.Status, &code, &created, &updated); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			reg.SessionID = &sessionID.Int64
		}
		reg.Code = code.String
		reg.CreatedAt = parseText(created)
		reg.UpdatedAt = parseText(updated)
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetRegistrationStatus(ctx context.Context, id int64, status conferly.RegistrationStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE registrations SET status = ?, updated_at = ? WHERE id = ?
	`, status, nowText(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- check-ins ---

func (s *SQLiteStore) InsertCheckIn(ctx context.Context, rec conferly.CheckInRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, attendee_name, attendee_email, check_in_time, status, qr_code, conference_id, method, action, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.AttendeeName, rec.AttendeeEmail, rec.CheckInTime, rec.Status,
		rec.QRCode, rec.ConferenceID, rec.Method, rec.Action, nowText())
	return err
}

func (s *SQLiteStore) ListCheckIns(ctx context.Context, conferenceID int64) ([]conferly.CheckInRecord, error) {
	q := `
		SELECT id, attendee_name, attendee_email, check_in_time, status, qr_code, conference_id, method, action
		FROM checkins
	`
	var args []any
	if conferenceID > 0 {
		q += ` WHERE conference_id = ?`
		args = append(args, conferenceID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conferly.CheckInRecord
	for rows.Next() {
		var rec conferly.CheckInRecord
		var name, email sql.NullString
		if err := rows.Scan(&rec.ID, &name, &email, &rec.CheckInTime,
			&rec.Status, &rec.QRCode, &rec.ConferenceID, &rec.Method, &rec.Action); err != nil {
			return nil, err
		}
		if name.Valid {
			rec.AttendeeName = &name.String
		}
		if email.Valid {
			rec.AttendeeEmail = &email.String
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// --- admins ---

func (s *SQLiteStore) AdminByEmail(ctx context.Context, email string) (adminAccount, error) {
	var a adminAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role FROM admins WHERE email = ?
	`, strings.ToLower(email)).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	return a, err
}

func (s *SQLiteStore) CreateAdmin(ctx context.Context, email, passwordHash, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (email, password_hash, role) VALUES (?, ?, ?)
	`, strings.ToLower(email), passwordHash, role)
	if err != nil && strings.Contains(err.Error(), "UNIQUE") {
		return ErrDuplicate
	}
	return err
}

func (s *SQLiteStore) CountAdmins(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CreateAdminSession(ctx context.Context, adminID string) (string, error) {
	var sessionID string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO admin_sessions (admin_id, created_at)
		VALUES (?, ?)
		RETURNING id
	`, adminID, nowText()).Scan(&sessionID)
	return sessionID, err
}

func (s *SQLiteStore) AdminFromSession(ctx context.Context, sessionID string) (adminSession, error) {
	var sess adminSession
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.email, a.role
		FROM admin_sessions s
		JOIN admins a ON a.id = s.admin_id
		WHERE s.id = ?
	`, sessionID).Scan(&sess.AdminID, &sess.Email, &sess.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return adminSession{}, ErrNotFound
	}
	return sess, err
}

func (s *SQLiteStore) DeleteAdminSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE id = ?`, sessionID)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
