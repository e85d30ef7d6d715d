// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Contact is a single address-book entry owned by a user.
// DateOfBirth is stored as an ISO date string (YYYY-MM-DD) or empty.
type Contact struct { //nolint:govet // fieldalignment: readability over optimization
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"-"`
	FirstName      string    `db:"first_name" json:"first_name"`
	LastName       string    `db:"last_name" json:"last_name"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	DateOfBirth    string    `db:"date_of_birth" json:"date_of_birth,omitempty"`
	AdditionalData string    `db:"additional_data" json:"additional_data,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
