// Package store keeps the client session on the device in a single-row
// SQLite table, so a login or logout is always one statement.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/parcelpoint/parcel-tracking/internal/core/domain"
)

const schema = `CREATE TABLE IF NOT EXISTS session (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	authToken TEXT NOT NULL,
	userData  TEXT
)`

// SQLiteStore implements ports.SessionStore.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the session database at path.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create session table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load returns domain.ErrNoSession when nothing is stored. An unreadable user
// projection is dropped and the token is still returned.
func (s *SQLiteStore) Load(ctx context.Context) (*domain.PersistedSession, error) {
	var (
		token    string
		userData sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT authToken, userData FROM session WHERE id = 1`).Scan(&token, &userData)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	out := &domain.PersistedSession{Token: token}
	if userData.Valid && userData.String != "" {
		var u domain.User
		if json.Unmarshal([]byte(userData.String), &u) == nil {
			out.User = &u
		}
	}
	return out, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string, user *domain.User) error {
	if token == "" {
		return domain.ErrEmptyToken
	}
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO session (id, authToken, userData) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET authToken = excluded.authToken, userData = excluded.userData`,
		token, data)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// SaveUser fails with domain.ErrNoSession when no token is stored.
func (s *SQLiteStore) SaveUser(ctx context.Context, user *domain.User) error {
	data, err := encodeUser(user)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE session SET userData = ? WHERE id = 1`, data)
	if err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNoSession
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func encodeUser(user *domain.User) (sql.NullString, error) {
	if user == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(user)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode user: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
