// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/contactdesk/internal/models"
)

// CreateUser inserts a new user and fills in its ID and timestamps.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, avatar, confirmed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.Avatar, user.Confirmed,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &user, nil
}

// UserExists checks if a user with the given email exists.
func (r *Repository) UserExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE email = ?`, email)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SetRefreshToken stores the refresh token for a user, overwriting any
// previous value. This is the revocation point for an earlier session.
func (r *Repository) SetRefreshToken(ctx context.Context, userID int64, refreshToken string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`,
		refreshToken, time.Now().UTC(), userID)
	return err
}

// RotateRefreshToken swaps the stored refresh token for a new one, but only
// if the stored value still matches oldToken. Returns false when the swap
// lost against a concurrent rotation or revocation.
func (r *Repository) RotateRefreshToken(ctx context.Context, userID int64, oldToken, newToken string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ? AND refresh_token = ?`,
		newToken, time.Now().UTC(), userID, oldToken)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ClearRefreshToken removes the stored refresh token, revoking the session.
func (r *Repository) ClearRefreshToken(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET refresh_token = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID)
	return err
}

// ConfirmUserEmail sets the confirmed flag for the user with the given email.
func (r *Repository) ConfirmUserEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1, updated_at = ? WHERE email = ?`,
		time.Now().UTC(), email)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateAvatar updates a user's avatar URL.
func (r *Repository) UpdateAvatar(ctx context.Context, userID int64, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET avatar = ?, updated_at = ? WHERE id = ?`,
		url, time.Now().UTC(), userID)
	return err
}
