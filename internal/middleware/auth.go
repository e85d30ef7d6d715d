// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"context"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/contactdesk/internal/auth"
	"codeberg.org/oliverandrich/contactdesk/internal/models"
	"github.com/labstack/echo/v4"
)

// UserAuthenticator resolves a bearer access token to a user account.
type UserAuthenticator interface {
	CurrentUser(ctx context.Context, accessToken string) (*models.User, error)
}

// BearerToken extracts the credentials from an Authorization header.
// It returns an empty string when the header is missing or not a
// bearer scheme.
func BearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	scheme, credentials, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(credentials)
}

// RequireUser creates middleware that authenticates the request via its
// bearer access token and stores the resolved user in the request
// context. Requests without a valid token are rejected with 401.
func RequireUser(authenticator UserAuthenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := BearerToken(c.Request())
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed authorization header")
			}

			user, err := authenticator.CurrentUser(c.Request().Context(), tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired access token")
			}

			ctx := auth.WithUser(c.Request().Context(), user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
