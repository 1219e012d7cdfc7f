package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/event-board/internal/apperror"
	"github.com/sakif/event-board/internal/model"
)

const userColumns = `sub, email, name, picture, is_admin, password_hash, created_at, last_login_at`

// UpsertLogin records a provider login keyed by email.
//
// ON CONFLICT ... DO UPDATE keeps is_admin, password_hash and created_at of
// an existing row; only the profile fields and last_login_at move.
func (db *DB) UpsertLogin(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	if user.LastLoginAt.IsZero() {
		user.LastLoginAt = now
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, sub, name, picture, created_at, last_login_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			sub = excluded.sub,
			name = excluded.name,
			picture = excluded.picture,
			last_login_at = excluded.last_login_at`,
		user.Email,
		user.Sub,
		user.Name,
		user.Picture,
		user.CreatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user %s: %w", user.Email, err)
	}
	return nil
}

// SaveAdmin creates or updates the admin account for user.Email.
func (db *DB) SaveAdmin(ctx context.Context, user *model.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (email, sub, name, is_admin, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO UPDATE SET
			sub = excluded.sub,
			name = CASE WHEN excluded.name = '' THEN users.name ELSE excluded.name END,
			is_admin = excluded.is_admin,
			password_hash = excluded.password_hash`,
		user.Email,
		user.Sub,
		user.Name,
		user.IsAdmin,
		user.PasswordHash,
		user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving admin %s: %w", user.Email, err)
	}
	return nil
}

// GetUserBySub returns apperror.ErrNotFound if no account carries sub.
func (db *DB) GetUserBySub(ctx context.Context, sub string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE sub = ? LIMIT 1`, sub)
	return scanUser(row, sub)
}

// GetUserByEmail returns apperror.ErrNotFound if no account uses email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row, email)
}

func scanUser(row *sql.Row, key string) (*model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.Sub,
		&u.Email,
		&u.Name,
		&u.Picture,
		&u.IsAdmin,
		&u.PasswordHash,
		&u.CreatedAt,
		&lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", key)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", key, err)
	}
	if lastLogin.Valid {
		u.LastLoginAt = lastLogin.Time
	}
	return &u, nil
}
