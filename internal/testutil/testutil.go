// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/contactdesk/internal/database"
	"codeberg.org/oliverandrich/contactdesk/internal/models"
	"codeberg.org/oliverandrich/contactdesk/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// Password is the plaintext password used for all test users.
const Password = "swordfish-9000"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestUser creates a confirmed test user with the shared test password.
func NewTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	return newUser(t, repo, email, true)
}

// NewUnconfirmedTestUser creates a test user whose email is not confirmed.
func NewUnconfirmedTestUser(t *testing.T, repo *repository.Repository, email string) *models.User {
	t.Helper()
	return newUser(t, repo, email, false)
}

func newUser(t *testing.T, repo *repository.Repository, email string, confirmed bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     "testuser",
		Email:        email,
		PasswordHash: string(hash),
		Confirmed:    confirmed,
	}
	require.NoError(t, repo.CreateUser(context.Background(), user))
	return user
}

// NewTestContact creates a contact owned by the given user.
func NewTestContact(t *testing.T, repo *repository.Repository, userID int64, firstName, lastName, email, phone string) *models.Contact {
	t.Helper()
	contact := &models.Contact{
		UserID:    userID,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Phone:     phone,
	}
	require.NoError(t, repo.CreateContact(context.Background(), contact))
	return contact
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
