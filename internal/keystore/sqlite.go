package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS keypairs (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	username              TEXT NOT NULL,
	encrypted_public_key  TEXT NOT NULL,
	encrypted_private_key TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS keypairs_username ON keypairs (username);
`

// SQLiteStore keeps records in a single SQLite table.
type SQLiteStore struct {
	conn   *sql.DB
	users  *userLocks
	closed atomic.Bool
}

// OpenSQLite opens or creates the database file at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// One connection keeps the pragmas in effect and serializes writers.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA busy_timeout=2000;"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("open sqlite %s: %w", path, err)
		}
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{conn: conn, users: newUserLocks()}, nil
}

func (s *SQLiteStore) Put(ctx context.Context, r Record) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := Validate(r); err != nil {
		return 0, err
	}

	release := s.users.lock(r.Username)
	defer release()

	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO keypairs (username, encrypted_public_key, encrypted_private_key) VALUES (?, ?, ?)`,
		r.Username, r.EncryptedPublicKey, r.EncryptedPrivateKey)
	if err != nil {
		return 0, mapSQLiteErr(err)
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	var r Record
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, username, encrypted_public_key, encrypted_private_key FROM keypairs WHERE id = ?`, id).
		Scan(&r.ID, &r.Username, &r.EncryptedPublicKey, &r.EncryptedPrivateKey)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	return &r, nil
}

func (s *SQLiteStore) ListByUsername(ctx context.Context, username string) ([]*Record, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, username, encrypted_public_key, encrypted_private_key FROM keypairs WHERE username = ? ORDER BY id`, username)
	if err != nil {
		return nil, mapSQLiteErr(err)
	}
	defer rows.Close()

	out := []*Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.Username, &r.EncryptedPublicKey, &r.EncryptedPrivateKey); err != nil {
			return nil, mapSQLiteErr(err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSQLiteErr(err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.conn.Close()
}

func mapSQLiteErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, sql.ErrConnDone) {
		return ErrClosed
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return err
}
