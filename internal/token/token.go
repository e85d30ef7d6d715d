// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies the signed tokens used for API sessions
// and email confirmation links.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purpose tags a token with the single context it may be used in. The tag is
// embedded in the signed claims, so a refresh token can never be replayed as
// an access token.
type Purpose string

const (
	PurposeAccess  Purpose = "access_token"
	PurposeRefresh Purpose = "refresh_token"
	PurposeEmail   Purpose = "email_verification"
)

// Default lifetimes per purpose.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultEmailTTL   = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken covers signature mismatch and structural corruption
	// uniformly, so callers cannot tell tampering from garbage.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired means the token decoded and verified but its expiry
	// has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongPurpose means a valid token was presented in the wrong context.
	ErrWrongPurpose = errors.New("invalid scope for token")
)

// Claims is the signed claim set: subject (account email), issued-at, expiry,
// a unique token ID, and the purpose tag.
type Claims struct {
	jwt.RegisteredClaims
	Scope Purpose `json:"scope"`
}

// Lifetimes overrides the default per-purpose token lifetimes. Zero fields
// keep the defaults.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
	Email   time.Duration
}

// Service signs and verifies tokens with a single symmetric key.
// It is safe for concurrent use; the key is read-only after construction.
type Service struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	emailTTL   time.Duration
}

// NewService creates a token service with the given signing key.
func NewService(signingKey []byte, lifetimes Lifetimes) *Service {
	s := &Service{
		signingKey: signingKey,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		emailTTL:   DefaultEmailTTL,
	}
	if lifetimes.Access > 0 {
		s.accessTTL = lifetimes.Access
	}
	if lifetimes.Refresh > 0 {
		s.refreshTTL = lifetimes.Refresh
	}
	if lifetimes.Email > 0 {
		s.emailTTL = lifetimes.Email
	}
	return s
}

// RandomSigningKey generates a random 32-byte signing key. Tokens signed with
// a generated key become unverifiable when the process restarts.
func RandomSigningKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate signing key: %w", err)
	}
	return key, nil
}

func (s *Service) defaultTTL(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeRefresh:
		return s.refreshTTL
	case PurposeEmail:
		return s.emailTTL
	default:
		return s.accessTTL
	}
}

// Issue creates a signed token for the subject with the given purpose.
// A ttl of zero selects the purpose's default lifetime; a negative ttl
// produces an already-expired token.
func (s *Service) Issue(subject string, purpose Purpose, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.defaultTTL(purpose)
	}

	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Scope: purpose,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueAccessToken creates an access token with the default lifetime.
func (s *Service) IssueAccessToken(subject string) (string, error) {
	return s.Issue(subject, PurposeAccess, 0)
}

// IssueRefreshToken creates a refresh token with the default lifetime.
func (s *Service) IssueRefreshToken(subject string) (string, error) {
	return s.Issue(subject, PurposeRefresh, 0)
}

// IssueEmailToken creates an email verification token with the default lifetime.
func (s *Service) IssueEmailToken(subject string) (string, error) {
	return s.Issue(subject, PurposeEmail, 0)
}

// Verify checks signature, expiry and purpose, in that order, and returns the
// subject. A token that is both corrupt and expired reports ErrInvalidToken.
//
// On ErrTokenExpired the subject is still returned, so callers can revoke
// persisted state bound to an expired token.
func (s *Service) Verify(tokenString string, purpose Purpose) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "", ErrInvalidToken
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims.Subject, ErrTokenExpired
	default:
		return "", ErrInvalidToken
	}

	if !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Scope != purpose {
		return "", ErrWrongPurpose
	}
	return claims.Subject, nil
}
