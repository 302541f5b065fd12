// Package store persists users, conversation turns, consented memory,
// mood check-ins and usage counters in SQLite. It serializes its own
// writes through database/sql; callers hold no locks.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nanban-ai/nanban/internal/conversation"
)

// Consent is the tri-state memory permission. Facts are read into a
// prompt only when consent is exactly granted.
type Consent string

const (
	ConsentGranted Consent = "granted"
	ConsentDenied  Consent = "denied"
	ConsentUnset   Consent = "unset"
)

// Memory is the per-user consented state reused across sessions.
type Memory struct {
	Consent   Consent
	Facts     string
	Mood      string
	ReplyMode string
}

// User is a chat user with their saved preferences.
type User struct {
	ID           string
	Name         string
	Dialect      string
	Persona      string
	VoiceEnabled bool
	CreatedAt    time.Time
	LastActive   time.Time
}

// Stats summarises one user's account.
type Stats struct {
	Name          string `json:"name"`
	Dialect       string `json:"dialect"`
	Persona       string `json:"persona"`
	TotalMessages int    `json:"total_messages"`
	TotalCheckins int    `json:"total_checkins"`
	CreatedAt     string `json:"created_at"`
	LastActive    string `json:"last_active"`
}

// ErrNotFound is returned when a user id has no row.
var ErrNotFound = errors.New("store: not found")

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the database at path. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent request handlers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			dialect TEXT NOT NULL DEFAULT 'COMMON',
			persona TEXT NOT NULL DEFAULT 'JALIANA',
			voice_enabled INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_active TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS memory (
			user_id TEXT PRIMARY KEY,
			consent TEXT NOT NULL DEFAULT 'unset',
			facts TEXT NOT NULL DEFAULT '',
			mood TEXT NOT NULL DEFAULT '',
			reply_mode TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS checkins (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			mood TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT PRIMARY KEY,
			total_messages INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (user_id) REFERENCES users (id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// timeLayout is the stored timestamp format, matching what SQLite's
// CURRENT_TIMESTAMP emits so both sources scan the same way.
const timeLayout = "2006-01-02 15:04:05"

func now() string { return time.Now().UTC().Format(timeLayout) }

// CreateUser inserts a new user and its stats row.
func (s *Store) CreateUser(ctx context.Context, id, name, dialect, persona string) error {
	ts := now()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, dialect, persona, created_at, last_active) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, dialect, persona, ts, ts); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES (?)`, id); err != nil {
		return fmt.Errorf("init stats: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	var voice int
	var created, active string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, dialect, persona, voice_enabled, created_at, last_active FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Dialect, &u.Persona, &voice, &created, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.VoiceEnabled = voice != 0
	u.CreatedAt, _ = time.Parse(timeLayout, created)
	u.LastActive, _ = time.Parse(timeLayout, active)
	return &u, nil
}

// UpdatePreferences saves dialect, persona, display name and the voice
// toggle, and refreshes last_active.
func (s *Store) UpdatePreferences(ctx context.Context, id, name, dialect, persona string, voiceEnabled bool) error {
	voice := 0
	if voiceEnabled {
		voice = 1
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, dialect = ?, persona = ?, voice_enabled = ?, last_active = CURRENT_TIMESTAMP WHERE id = ?`,
		name, dialect, persona, voice, id)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendTurn records one conversation turn and bumps the message counter.
func (s *Store) AppendTurn(ctx context.Context, userID, role, content string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		userID, role, content, now()); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE user_stats SET total_messages = total_messages + 1 WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("bump stats: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_active = CURRENT_TIMESTAMP WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// History returns the most recent limit turns in chronological order.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]conversation.Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, created_at FROM conversations WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var newestFirst []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		var created string
		if err := rows.Scan(&t.Role, &t.Content, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt, _ = time.Parse(timeLayout, created)
		newestFirst = append(newestFirst, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// ClearHistory deletes every turn for a user.
func (s *Store) ClearHistory(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// GetMemory returns the user's memory, or nil when none has been stored.
func (s *Store) GetMemory(ctx context.Context, userID string) (*Memory, error) {
	var m Memory
	err := s.db.QueryRowContext(ctx,
		`SELECT consent, facts, mood, reply_mode FROM memory WHERE user_id = ?`, userID).
		Scan(&m.Consent, &m.Facts, &m.Mood, &m.ReplyMode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return &m, nil
}

// SetMemory upserts the user's memory. Consent changes only through this
// explicit call.
func (s *Store) SetMemory(ctx context.Context, userID string, m Memory) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO memory (user_id, consent, facts, mood, reply_mode, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id) DO UPDATE SET
			consent = excluded.consent,
			facts = excluded.facts,
			mood = excluded.mood,
			reply_mode = excluded.reply_mode,
			updated_at = CURRENT_TIMESTAMP`,
		userID, m.Consent, m.Facts, m.Mood, m.ReplyMode); err != nil {
		return fmt.Errorf("set memory: %w", err)
	}
	return nil
}

// ClearMemory implements "forget": every field is reset and consent
// returns to unset.
func (s *Store) ClearMemory(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE memory SET consent = 'unset', facts = '', mood = '', reply_mode = '', updated_at = CURRENT_TIMESTAMP WHERE user_id = ?`,
		userID); err != nil {
		return fmt.Errorf("clear memory: %w", err)
	}
	return nil
}

// RecordCheckin appends one mood check-in.
func (s *Store) RecordCheckin(ctx context.Context, userID, mood string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (user_id, mood, created_at) VALUES (?, ?, ?)`, userID, mood, now()); err != nil {
		return fmt.Errorf("record checkin: %w", err)
	}
	return nil
}

// Stats returns the account summary for a user.
func (s *Store) Stats(ctx context.Context, userID string) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT u.name, u.dialect, u.persona, s.total_messages, u.created_at, u.last_active,
			(SELECT COUNT(*) FROM checkins c WHERE c.user_id = u.id)
		 FROM users u JOIN user_stats s ON u.id = s.user_id WHERE u.id = ?`, userID).
		Scan(&st.Name, &st.Dialect, &st.Persona, &st.TotalMessages, &st.CreatedAt, &st.LastActive, &st.TotalCheckins)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &st, nil
}
