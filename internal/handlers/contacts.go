// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/contactdesk/internal/auth"
	"codeberg.org/oliverandrich/contactdesk/internal/models"
	"codeberg.org/oliverandrich/contactdesk/internal/repository"
	"github.com/labstack/echo/v4"
)

// ContactHandlers contains handlers for the contact book.
type ContactHandlers struct {
	repo *repository.Repository
}

// NewContacts creates a new ContactHandlers instance.
func NewContacts(repo *repository.Repository) *ContactHandlers {
	return &ContactHandlers{repo: repo}
}

// ContactRequest is the request body for creating or updating a contact.
type ContactRequest struct {
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	DateOfBirth    string `json:"date_of_birth"`
	AdditionalData string `json:"additional_data"`
}

func (r *ContactRequest) validate() string {
	if r.FirstName == "" || r.LastName == "" || r.Email == "" || r.Phone == "" {
		return "first_name, last_name, email and phone are required"
	}
	if r.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", r.DateOfBirth); err != nil {
			return "date_of_birth must be formatted as YYYY-MM-DD"
		}
	}
	return ""
}

// Create adds a contact to the caller's contact book.
func (h *ContactHandlers) Create(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	exists, err := h.repo.ContactExists(c.Request().Context(), user.ID, req.Email, req.Phone)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}
	if exists {
		return c.JSON(http.StatusConflict, map[string]string{"error": "contact with this email or phone already exists"})
	}

	contact := &models.Contact{
		UserID:         user.ID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
		AdditionalData: req.AdditionalData,
	}
	if err := h.repo.CreateContact(c.Request().Context(), contact); err != nil {
		slog.Error("failed to create contact", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to create contact"})
	}

	return c.JSON(http.StatusCreated, contact)
}

// List returns the caller's contacts, optionally filtered by name or
// email and paginated with skip/limit.
func (h *ContactHandlers) List(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	filter := repository.ContactFilter{
		FirstName: c.QueryParam("first_name"),
		LastName:  c.QueryParam("last_name"),
		Email:     c.QueryParam("email"),
		Skip:      intQueryParam(c, "skip", 0),
		Limit:     intQueryParam(c, "limit", 0),
	}

	contacts, err := h.repo.ListContacts(c.Request().Context(), user.ID, filter)
	if err != nil {
		slog.Error("failed to list contacts", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list contacts"})
	}

	return c.JSON(http.StatusOK, contacts)
}

// Get returns a single contact owned by the caller.
func (h *ContactHandlers) Get(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid contact id"})
	}

	contact, err := h.repo.GetContact(c.Request().Context(), id, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "contact not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database error"})
	}

	return c.JSON(http.StatusOK, contact)
}

// Update replaces a contact owned by the caller.
func (h *ContactHandlers) Update(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid contact id"})
	}

	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	contact := &models.Contact{
		ID:             id,
		UserID:         user.ID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Phone:          req.Phone,
		DateOfBirth:    req.DateOfBirth,
		AdditionalData: req.AdditionalData,
	}
	err = h.repo.UpdateContact(c.Request().Context(), contact)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "contact not found"})
	}
	if err != nil {
		slog.Error("failed to update contact", "error", err, "user_id", user.ID, "contact_id", id)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to update contact"})
	}

	return c.JSON(http.StatusOK, contact)
}

// Delete removes a contact owned by the caller.
func (h *ContactHandlers) Delete(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid contact id"})
	}

	err = h.repo.DeleteContact(c.Request().Context(), id, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "contact not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to delete contact"})
	}

	return c.NoContent(http.StatusNoContent)
}

// Birthdays lists the caller's contacts with a birthday in the next
// seven days.
func (h *ContactHandlers) Birthdays(c echo.Context) error {
	user := auth.GetUser(c.Request().Context())
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
	}

	skip := intQueryParam(c, "skip", 0)
	limit := intQueryParam(c, "limit", 100)

	contacts, err := h.repo.UpcomingBirthdays(c.Request().Context(), user.ID, skip, limit)
	if err != nil {
		slog.Error("failed to list birthdays", "error", err, "user_id", user.ID)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list birthdays"})
	}

	return c.JSON(http.StatusOK, contacts)
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
