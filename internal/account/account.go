// Package account stores registered users in SQLite.
//
// Passwords are compared as stored. The player keeps no session beyond the
// user record returned by Login.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/tonearm/internal/apperr"
	"github.com/starford/tonearm/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// DB wraps the users table.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("account: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("account: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("account: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Register creates a user. A taken email yields apperr.ErrDuplicateEmail.
func (db *DB) Register(ctx context.Context, name, email, password string) (models.User, error) {
	email = strings.TrimSpace(email)
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, name, email, password)
	if err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return models.User{}, apperr.ErrDuplicateEmail
		}
		return models.User{}, fmt.Errorf("account: register: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("account: register: last id: %w", err)
	}
	return models.User{ID: id, Name: name, Email: email}, nil
}

// Login returns the user whose email and password both match, or
// apperr.ErrInvalidCredentials.
func (db *DB) Login(ctx context.Context, email, password string) (models.User, error) {
	var u models.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE email = ? AND password = ?`,
		strings.TrimSpace(email), password).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, fmt.Errorf("account: login: %w", err)
	}
	return u, nil
}
