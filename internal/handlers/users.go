// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"net/url"

	"codeberg.org/oliverandrich/contactdesk/internal/auth"
	"codeberg.org/oliverandrich/contactdesk/internal/repository"
	"github.com/labstack/echo/v4"
)

// UserHandlers contains handlers for the user profile.
type UserHandlers struct {
	repo *repository.Repository
}

// NewUsers creates a new UserHandlers instance.
func NewUsers(repo *repository.Repository) *UserHandlers {
	return &UserHandlers{repo: repo}
}

// Me returns the authenticated user's profile.
func (h *UserHandlers) Me(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}
	return c.JSON(http.StatusOK, user)
}

// AvatarRequest is the request body for replacing the avatar URL.
type AvatarRequest struct {
	Avatar string `json:"avatar"`
}

// UpdateAvatar replaces the caller's avatar URL and returns the
// updated profile.
func (h *UserHandlers) UpdateAvatar(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	var req AvatarRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	parsed, err := url.Parse(req.Avatar)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "avatar must be an absolute URL"})
	}

	if err := h.repo.UpdateAvatar(c.Request().Context(), user.ID, req.Avatar); err != nil {
		slog.Error("failed to update avatar", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update avatar"})
	}

	updated, err := h.repo.GetUserByID(c.Request().Context(), user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}
	return c.JSON(http.StatusOK, updated)
}
