// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth implements signup, login, token refresh and email
// confirmation on top of the token service and the user store.
package auth

import (
	"context"
	"crypto/md5" //nolint:gosec // gravatar addressing, not a security context
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"codeberg.org/oliverandrich/contactdesk/internal/models"
	"codeberg.org/oliverandrich/contactdesk/internal/repository"
	"codeberg.org/oliverandrich/contactdesk/internal/token"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidEmail       = errors.New("invalid email format")
	// ErrUnauthorized is the umbrella failure for token verification and
	// session resolution; it deliberately carries no detail.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrVerificationFailed means an email confirmation token named an
	// account that does not exist.
	ErrVerificationFailed = errors.New("verification error")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// EmailSender delivers confirmation mail. Delivery failures are logged, never
// escalated; signup must not fail because mail delivery failed.
type EmailSender interface {
	SendVerification(ctx context.Context, toEmail, username, verificationToken string) error
}

// TokenPair is the client-facing token triple returned by Login and Refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service orchestrates session authentication against the user store.
type Service struct {
	repo   *repository.Repository
	tokens *token.Service
	mailer EmailSender // nil disables confirmation mail
}

// NewService creates a new authentication service. mailer may be nil; signup
// then skips the confirmation mail.
func NewService(repo *repository.Repository, tokens *token.Service, mailer EmailSender) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
	}
}

// RegisterParams holds the parameters for account signup.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Register creates a new unconfirmed account and fires the confirmation mail.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.User, error) {
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	exists, err := s.repo.UserExists(ctx, params.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Avatar:       gravatarURL(params.Email),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("register_success", "user_id", user.ID, "email", user.Email)

	s.sendConfirmation(ctx, user)

	return user, nil
}

// Login authenticates a user and issues a fresh token pair. The new refresh
// token overwrites the stored one, revoking any previous session.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "user_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.Confirmed {
		slog.Warn("login_failed", "email", email, "reason", "email_not_confirmed")
		return nil, ErrEmailNotConfirmed
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	slog.Info("login_success", "user_id", user.ID, "email", email)
	return pair, nil
}

// Refresh rotates a refresh token and issues a new token pair. Presenting a
// token other than the stored one revokes the stored token as well; an
// expired token silently revokes the session it belonged to.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.tokens.Verify(refreshToken, token.PurposeRefresh)
	if err != nil {
		if errors.Is(err, token.ErrTokenExpired) && subject != "" {
			s.revokeExpired(ctx, subject, refreshToken)
		}
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByEmail(ctx, subject)
	if err != nil {
		return nil, ErrUnauthorized
	}

	if !user.RefreshToken.Valid || user.RefreshToken.String != refreshToken {
		// Stale or already-rotated token: kill the live session too.
		if err := s.repo.ClearRefreshToken(ctx, user.ID); err != nil {
			slog.Error("failed to clear refresh token", "user_id", user.ID, "error", err)
		}
		slog.Warn("refresh_rejected", "user_id", user.ID, "reason", "token_mismatch")
		return nil, ErrUnauthorized
	}

	pair, err := s.issuePair(user.Email)
	if err != nil {
		return nil, err
	}

	rotated, err := s.repo.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !rotated {
		// Lost a race against a concurrent refresh or logout.
		slog.Warn("refresh_rejected", "user_id", user.ID, "reason", "rotation_conflict")
		return nil, ErrUnauthorized
	}

	return pair, nil
}

// CurrentUser resolves an access token to the account it belongs to.
// Any verification or lookup failure collapses into ErrUnauthorized.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*models.User, error) {
	subject, err := s.tokens.Verify(accessToken, token.PurposeAccess)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByEmail(ctx, subject)
	if err != nil {
		return nil, ErrUnauthorized
	}
	return user, nil
}

// Logout clears the stored refresh token for the account, ending the session.
// Outstanding access tokens stay valid until they expire.
func (s *Service) Logout(ctx context.Context, user *models.User) error {
	if err := s.repo.ClearRefreshToken(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	slog.Info("logout", "user_id", user.ID)
	return nil
}

// ConfirmEmail confirms the account named by a verification token. Returns
// true if the account was already confirmed; repeated calls are idempotent.
func (s *Service) ConfirmEmail(ctx context.Context, verificationToken string) (alreadyConfirmed bool, err error) {
	subject, err := s.tokens.Verify(verificationToken, token.PurposeEmail)
	if err != nil {
		return false, err
	}

	user, err := s.repo.GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrVerificationFailed
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Confirmed {
		return true, nil
	}

	if err := s.repo.ConfirmUserEmail(ctx, user.Email); err != nil {
		return false, fmt.Errorf("failed to confirm email: %w", err)
	}

	slog.Info("email_confirmed", "user_id", user.ID, "email", user.Email)
	return false, nil
}

// RequestEmailConfirmation re-sends the confirmation mail. Returns true if
// the account is already confirmed. Unknown addresses report success without
// sending, to resist account enumeration.
func (s *Service) RequestEmailConfirmation(ctx context.Context, email string) (alreadyConfirmed bool, err error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	if user.Confirmed {
		return true, nil
	}

	s.sendConfirmation(ctx, user)
	return false, nil
}

func (s *Service) issuePair(subject string) (*TokenPair, error) {
	accessToken, err := s.tokens.IssueAccessToken(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

// revokeExpired clears the stored refresh token when the expired token that
// was presented is the one on record.
func (s *Service) revokeExpired(ctx context.Context, subject, refreshToken string) {
	user, err := s.repo.GetUserByEmail(ctx, subject)
	if err != nil {
		return
	}
	if user.RefreshToken.Valid && user.RefreshToken.String == refreshToken {
		if err := s.repo.ClearRefreshToken(ctx, user.ID); err != nil {
			slog.Error("failed to clear expired refresh token", "user_id", user.ID, "error", err)
		}
	}
}

// sendConfirmation issues an email verification token and hands it to the
// mailer. Failures are logged and swallowed.
func (s *Service) sendConfirmation(ctx context.Context, user *models.User) {
	if s.mailer == nil {
		return
	}

	verificationToken, err := s.tokens.IssueEmailToken(user.Email)
	if err != nil {
		slog.Error("failed to issue email token", "user_id", user.ID, "error", err)
		return
	}

	if err := s.mailer.SendVerification(ctx, user.Email, user.Username, verificationToken); err != nil {
		slog.Error("failed to send confirmation mail", "user_id", user.ID, "error", err)
	}
}

// gravatarURL derives the avatar URL for an email address.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=identicon"
}
