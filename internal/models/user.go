// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// User is an account that owns contacts. RefreshToken holds the single live
// refresh token for the account; clearing it revokes the session.
type User struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64          `db:"id" json:"id"`
	Username     string         `db:"username" json:"username"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Avatar       string         `db:"avatar" json:"avatar"`
	RefreshToken sql.NullString `db:"refresh_token" json:"-"`
	Confirmed    bool           `db:"confirmed" json:"confirmed"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
