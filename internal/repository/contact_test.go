// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/contactdesk/internal/models"
	"codeberg.org/oliverandrich/contactdesk/internal/repository"
	"codeberg.org/oliverandrich/contactdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContact(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")

	contact := &models.Contact{
		UserID:      user.ID,
		FirstName:   "Grace",
		LastName:    "Hopper",
		Email:       "grace@example.com",
		Phone:       "+1555000001",
		DateOfBirth: "1906-12-09",
	}
	err := repo.CreateContact(ctx, contact)

	require.NoError(t, err)
	assert.NotZero(t, contact.ID)
}

func TestCreateContact_DuplicatePerUser(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	other := testutil.NewTestUser(t, repo, "bob@example.com")

	testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	err := repo.CreateContact(ctx, &models.Contact{
		UserID: user.ID, FirstName: "Grace", LastName: "Hopper",
		Email: "grace@example.com", Phone: "+1555000001",
	})
	assert.Error(t, err)

	// The same contact under a different owner is fine.
	err = repo.CreateContact(ctx, &models.Contact{
		UserID: other.ID, FirstName: "Grace", LastName: "Hopper",
		Email: "grace@example.com", Phone: "+1555000001",
	})
	assert.NoError(t, err)
}

func TestGetContact_ScopedToOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	other := testutil.NewTestUser(t, repo, "bob@example.com")
	contact := testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	retrieved, err := repo.GetContact(ctx, contact.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.ID, retrieved.ID)

	_, err = repo.GetContact(ctx, contact.ID, other.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListContacts_Filters(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")
	testutil.NewTestContact(t, repo, user.ID, "Alan", "Turing", "alan@example.com", "+1555000002")
	testutil.NewTestContact(t, repo, user.ID, "Grace", "Kelly", "kelly@example.com", "+1555000003")

	all, err := repo.ListContacts(ctx, user.ID, repository.ContactFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	graces, err := repo.ListContacts(ctx, user.ID, repository.ContactFilter{FirstName: "Grace"})
	require.NoError(t, err)
	assert.Len(t, graces, 2)

	hoppers, err := repo.ListContacts(ctx, user.ID, repository.ContactFilter{FirstName: "Grace", LastName: "Hopper"})
	require.NoError(t, err)
	require.Len(t, hoppers, 1)
	assert.Equal(t, "grace@example.com", hoppers[0].Email)

	byMail, err := repo.ListContacts(ctx, user.ID, repository.ContactFilter{Email: "alan@example.com"})
	require.NoError(t, err)
	assert.Len(t, byMail, 1)
}

func TestListContacts_Pagination(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	testutil.NewTestContact(t, repo, user.ID, "A", "A", "a@example.com", "+1555000001")
	testutil.NewTestContact(t, repo, user.ID, "B", "B", "b@example.com", "+1555000002")
	testutil.NewTestContact(t, repo, user.ID, "C", "C", "c@example.com", "+1555000003")

	page, err := repo.ListContacts(ctx, user.ID, repository.ContactFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b@example.com", page[0].Email)
}

func TestListContacts_OwnershipIsolation(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	other := testutil.NewTestUser(t, repo, "bob@example.com")
	testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	contacts, err := repo.ListContacts(ctx, other.ID, repository.ContactFilter{})
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestContactExists(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	exists, err := repo.ContactExists(ctx, user.ID, "grace@example.com", "+100")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ContactExists(ctx, user.ID, "other@example.com", "+1555000001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ContactExists(ctx, user.ID, "other@example.com", "+100")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUpdateContact(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	contact := testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	contact.FirstName = "Grace Brewster"
	require.NoError(t, repo.UpdateContact(ctx, contact))

	stored, err := repo.GetContact(ctx, contact.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Brewster", stored.FirstName)
}

func TestUpdateContact_WrongOwner(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	other := testutil.NewTestUser(t, repo, "bob@example.com")
	contact := testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	contact.UserID = other.ID
	err := repo.UpdateContact(ctx, contact)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteContact(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	contact := testutil.NewTestContact(t, repo, user.ID, "Grace", "Hopper", "grace@example.com", "+1555000001")

	require.NoError(t, repo.DeleteContact(ctx, contact.ID, user.ID))

	_, err := repo.GetContact(ctx, contact.ID, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = repo.DeleteContact(ctx, contact.ID, user.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpcomingBirthdays(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	now := time.Now().UTC()

	inWindow := &models.Contact{
		UserID: user.ID, FirstName: "In", LastName: "Window",
		Email: "in@example.com", Phone: "+1555000001",
		DateOfBirth: now.AddDate(-30, 0, 3).Format("2006-01-02"),
	}
	require.NoError(t, repo.CreateContact(ctx, inWindow))

	outOfWindow := &models.Contact{
		UserID: user.ID, FirstName: "Out", LastName: "Window",
		Email: "out@example.com", Phone: "+1555000002",
		DateOfBirth: now.AddDate(-30, 0, 30).Format("2006-01-02"),
	}
	require.NoError(t, repo.CreateContact(ctx, outOfWindow))

	noBirthday := &models.Contact{
		UserID: user.ID, FirstName: "No", LastName: "Birthday",
		Email: "no@example.com", Phone: "+1555000003",
	}
	require.NoError(t, repo.CreateContact(ctx, noBirthday))

	matched, err := repo.UpcomingBirthdays(ctx, user.ID, 0, 100)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "in@example.com", matched[0].Email)
}

func TestUpcomingBirthdays_Today(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	today := time.Now().UTC()

	contact := &models.Contact{
		UserID: user.ID, FirstName: "Birthday", LastName: "Today",
		Email: "today@example.com", Phone: "+1555000001",
		DateOfBirth: today.AddDate(-42, 0, 0).Format("2006-01-02"),
	}
	require.NoError(t, repo.CreateContact(ctx, contact))

	matched, err := repo.UpcomingBirthdays(ctx, user.ID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}

func TestUpcomingBirthdays_YearWrap(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	user := testutil.NewTestUser(t, repo, "alice@example.com")
	now := time.Now().UTC()

	// A birthday three days from now always lands in the window, even when
	// that date falls in the next calendar year.
	target := now.AddDate(0, 0, 3)
	contact := &models.Contact{
		UserID: user.ID, FirstName: "Wrap", LastName: "Around",
		Email: "wrap@example.com", Phone: "+1555000001",
		DateOfBirth: time.Date(1990, target.Month(), target.Day(), 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
	}
	require.NoError(t, repo.CreateContact(ctx, contact))

	matched, err := repo.UpcomingBirthdays(ctx, user.ID, 0, 100)
	require.NoError(t, err)
	assert.Len(t, matched, 1)
}
