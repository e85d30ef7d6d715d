// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"
	"time"

	"codeberg.org/oliverandrich/contactdesk/internal/models"
)

// ContactFilter narrows ListContacts results. Empty fields are ignored;
// Limit <= 0 defaults to 100.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
	Skip      int
	Limit     int
}

// CreateContact inserts a new contact and fills in its ID and timestamps.
func (r *Repository) CreateContact(ctx context.Context, contact *models.Contact) error {
	now := time.Now().UTC()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (user_id, first_name, last_name, email, phone, date_of_birth, additional_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contact.UserID, contact.FirstName, contact.LastName, contact.Email, contact.Phone,
		contact.DateOfBirth, contact.AdditionalData, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	contact.ID = id
	return nil
}

// GetContact retrieves a contact by ID, scoped to its owner.
func (r *Repository) GetContact(ctx context.Context, id, userID int64) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.GetContext(ctx, &contact,
		`SELECT * FROM contacts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &contact, nil
}

// ListContacts returns the user's contacts matching the filter, ordered by
// last name then first name.
func (r *Repository) ListContacts(ctx context.Context, userID int64, filter ContactFilter) ([]models.Contact, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT * FROM contacts WHERE user_id = ?`)
	args := []any{userID}

	if filter.FirstName != "" {
		query.WriteString(` AND first_name = ?`)
		args = append(args, filter.FirstName)
	}
	if filter.LastName != "" {
		query.WriteString(` AND last_name = ?`)
		args = append(args, filter.LastName)
	}
	if filter.Email != "" {
		query.WriteString(` AND email = ?`)
		args = append(args, filter.Email)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query.WriteString(` ORDER BY last_name, first_name LIMIT ? OFFSET ?`)
	args = append(args, limit, filter.Skip)

	contacts := []models.Contact{}
	if err := r.db.SelectContext(ctx, &contacts, query.String(), args...); err != nil {
		return nil, err
	}
	return contacts, nil
}

// ContactExists checks if the user already has a contact with the given
// email or phone.
func (r *Repository) ContactExists(ctx context.Context, userID int64, email, phone string) (bool, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM contacts WHERE user_id = ? AND (email = ? OR phone = ?)`,
		userID, email, phone)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateContact updates an existing contact, scoped to its owner.
func (r *Repository) UpdateContact(ctx context.Context, contact *models.Contact) error {
	contact.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET first_name = ?, last_name = ?, email = ?, phone = ?, date_of_birth = ?, additional_data = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		contact.FirstName, contact.LastName, contact.Email, contact.Phone,
		contact.DateOfBirth, contact.AdditionalData, contact.UpdatedAt,
		contact.ID, contact.UserID)
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

// DeleteContact deletes a contact by ID, scoped to its owner.
func (r *Repository) DeleteContact(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE id = ? AND user_id = ?`, id, userID)
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

// UpcomingBirthdays returns the user's contacts whose birthday falls within
// the next seven days, including today. The year wrap at New Year is handled
// by projecting each birthday onto its next occurrence.
func (r *Repository) UpcomingBirthdays(ctx context.Context, userID int64, skip, limit int) ([]models.Contact, error) {
	all := []models.Contact{}
	err := r.db.SelectContext(ctx, &all,
		`SELECT * FROM contacts WHERE user_id = ? AND date_of_birth != '' ORDER BY last_name, first_name`,
		userID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 100
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	cutoff := today.AddDate(0, 0, 7)

	matched := []models.Contact{}
	for _, contact := range all {
		dob, err := time.Parse("2006-01-02", contact.DateOfBirth)
		if err != nil {
			continue
		}
		next := nextOccurrence(dob, today)
		if !next.Before(today) && !next.After(cutoff) {
			matched = append(matched, contact)
		}
	}

	if skip >= len(matched) {
		return []models.Contact{}, nil
	}
	matched = matched[skip:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// nextOccurrence projects a birthday onto its first occurrence on or after
// the reference day. Feb 29 normalizes to Mar 1 in non-leap years.
func nextOccurrence(birthday, ref time.Time) time.Time {
	next := time.Date(ref.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(ref) {
		next = time.Date(ref.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	}
	return next
}
