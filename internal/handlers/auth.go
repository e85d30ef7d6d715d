// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/contactdesk/internal/auth"
	"codeberg.org/oliverandrich/contactdesk/internal/middleware"
	authsvc "codeberg.org/oliverandrich/contactdesk/internal/services/auth"
	"codeberg.org/oliverandrich/contactdesk/internal/token"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for account and session management.
type AuthHandlers struct {
	auth *authsvc.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(auth *authsvc.Service) *AuthHandlers {
	return &AuthHandlers{auth: auth}
}

// SignupRequest is the request body for creating an account.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates a new account and sends the confirmation mail.
func (h *AuthHandlers) Signup(c echo.Context) error {
	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "username, email and password are required"})
	}

	user, err := h.auth.Register(c.Request().Context(), authsvc.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, authsvc.ErrUserExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "account already exists"})
	case errors.Is(err, authsvc.ErrInvalidEmail):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "invalid email address"})
	case err != nil:
		slog.Error("failed to create account", "error", err, "email", req.Email)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"user":   user,
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

// LoginRequest is the request body for opening a session.
type LoginRequest struct {
	Email    string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login exchanges credentials for an access/refresh token pair.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	pair, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, authsvc.ErrEmailNotConfirmed):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "email not confirmed"})
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case err != nil:
		slog.Error("login failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, pair)
}

// Refresh trades a bearer refresh token for a fresh token pair. The old
// refresh token is invalidated in the same step.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	refreshToken := middleware.BearerToken(c.Request())
	if refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing or malformed authorization header"})
	}

	pair, err := h.auth.Refresh(c.Request().Context(), refreshToken)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
	}

	return c.JSON(http.StatusOK, pair)
}

// ConfirmEmail marks the account behind the verification token as
// confirmed. Revisiting a used link reports success.
func (h *AuthHandlers) ConfirmEmail(c echo.Context) error {
	alreadyConfirmed, err := h.auth.ConfirmEmail(c.Request().Context(), c.Param("token"))
	switch {
	case errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrWrongPurpose):
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "invalid token for email verification"})
	case errors.Is(err, authsvc.ErrVerificationFailed):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "verification error"})
	case err != nil:
		slog.Error("email confirmation failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "verification error"})
	}

	if alreadyConfirmed {
		return c.JSON(http.StatusOK, map[string]string{"message": "Your email is already confirmed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Email confirmed"})
}

// RequestEmailRequest is the request body for re-sending the
// confirmation mail.
type RequestEmailRequest struct {
	Email string `json:"email"`
}

// RequestEmail re-sends the confirmation mail. The response does not
// reveal whether the address belongs to an account.
func (h *AuthHandlers) RequestEmail(c echo.Context) error {
	var req RequestEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	alreadyConfirmed, err := h.auth.RequestEmailConfirmation(c.Request().Context(), req.Email)
	if err != nil {
		slog.Error("confirmation mail request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to process request"})
	}

	if alreadyConfirmed {
		return c.JSON(http.StatusOK, map[string]string{"message": "Your email is already confirmed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Check your email for confirmation."})
}

// Logout revokes the caller's stored refresh token.
func (h *AuthHandlers) Logout(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	if err := h.auth.Logout(c.Request().Context(), user); err != nil {
		slog.Error("logout failed", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "logout failed"})
	}

	return c.NoContent(http.StatusNoContent)
}
