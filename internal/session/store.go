package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/driftwatch/console-core/internal/auth"
)

// Storage keys. Each session field is stored under its own key beneath a
// stable namespace prefix so that partial corruption (a single key
// surviving an interrupted write) is detectable at load time.
const (
	keyPrefix = "console.session."

	keyAccessToken  = keyPrefix + "access_token"
	keyRefreshToken = keyPrefix + "refresh_token"
	keyUser         = keyPrefix + "user"
	keyOrganization = keyPrefix + "organization"
	keyRole         = keyPrefix + "role"
)

// sessionKeys lists every key a session bundle occupies. Save and Clear
// always act on all of them together; no partial-clear is exposed.
var sessionKeys = []string{
	keyAccessToken,
	keyRefreshToken,
	keyUser,
	keyOrganization,
	keyRole,
}

// Store defines the interface for session persistence.
type Store interface {
	// Save persists the session as one atomic bundle, replacing any
	// previous bundle. Incomplete sessions are rejected.
	Save(ctx context.Context, s *auth.Session) error

	// Load reads the persisted session. It returns auth.ErrNoSession if
	// nothing is stored and auth.ErrSessionIncomplete if the stored
	// bundle does not deserialize in full.
	Load(ctx context.Context) (*auth.Session, error)

	// Clear removes all session keys together. Clearing an empty store
	// is a no-op.
	Clear(ctx context.Context) error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed session store.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists the session bundle in a single transaction.
// The previous bundle's keys are removed first so a new session can
// never silently merge with fields from an old one.
func (s *SQLiteStore) Save(ctx context.Context, sess *auth.Session) error {
	if !sess.Complete() {
		return auth.ErrSessionIncomplete
	}

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}
	orgJSON, err := json.Marshal(sess.Organization)
	if err != nil {
		return fmt.Errorf("encoding organization: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := deleteSessionKeys(ctx, tx); err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	values := map[string]string{
		keyAccessToken:  sess.AccessToken,
		keyRefreshToken: sess.RefreshToken,
		keyUser:         string(userJSON),
		keyOrganization: string(orgJSON),
		keyRole:         string(sess.Role),
	}

	for _, key := range sessionKeys {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO session_store (key, value, updated_at) VALUES (?, ?, ?)",
			key, values[key], now,
		); err != nil {
			return fmt.Errorf("writing %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session save: %w", err)
	}
	return nil
}

// Load reads the persisted session bundle.
//
// All required keys must be present and deserialize before a session is
// reported; anything less is an absent or corrupt bundle, never a
// partially-populated session. The refresh token key may hold an empty
// value — short-lived sessions are persisted without one.
func (s *SQLiteStore) Load(ctx context.Context) (*auth.Session, error) {
	placeholders := strings.Repeat("?,", len(sessionKeys))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(sessionKeys))
	for i, k := range sessionKeys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM session_store WHERE key IN ("+placeholders+")",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying session store: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string, len(sessionKeys))
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session rows: %w", err)
	}

	if len(values) == 0 {
		return nil, auth.ErrNoSession
	}

	sess := &auth.Session{
		AccessToken:  values[keyAccessToken],
		RefreshToken: values[keyRefreshToken],
		Role:         auth.Role(values[keyRole]),
	}

	if v, ok := values[keyUser]; ok {
		if err := json.Unmarshal([]byte(v), &sess.User); err != nil {
			return nil, auth.ErrSessionIncomplete
		}
	}
	if v, ok := values[keyOrganization]; ok {
		if err := json.Unmarshal([]byte(v), &sess.Organization); err != nil {
			return nil, auth.ErrSessionIncomplete
		}
	}

	if !sess.Complete() {
		return nil, auth.ErrSessionIncomplete
	}
	return sess, nil
}

// Clear removes all session keys in one transaction. Idempotent.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning clear transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := deleteSessionKeys(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing session clear: %w", err)
	}
	return nil
}

// deleteSessionKeys removes every session key within the transaction.
func deleteSessionKeys(ctx context.Context, tx *sql.Tx) error {
	for _, key := range sessionKeys {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM session_store WHERE key = ?", key,
		); err != nil {
			return fmt.Errorf("clearing %s: %w", key, err)
		}
	}
	return nil
}
