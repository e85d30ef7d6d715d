// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires the application together and runs the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/contactdesk/internal/config"
	"codeberg.org/oliverandrich/contactdesk/internal/database"
	"codeberg.org/oliverandrich/contactdesk/internal/handlers"
	appmiddleware "codeberg.org/oliverandrich/contactdesk/internal/middleware"
	"codeberg.org/oliverandrich/contactdesk/internal/repository"
	authsvc "codeberg.org/oliverandrich/contactdesk/internal/services/auth"
	"codeberg.org/oliverandrich/contactdesk/internal/services/email"
	"codeberg.org/oliverandrich/contactdesk/internal/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// Repository
	repo := repository.New(db)

	// Token service
	tokens, err := tokenService(cfg)
	if err != nil {
		return err
	}

	// Confirmation mail
	var mailer authsvc.EmailSender
	if cfg.SMTP.Host != "" {
		sender, mailErr := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if mailErr != nil {
			return fmt.Errorf("failed to set up mail sender: %w", mailErr)
		}
		mailer = sender
	} else {
		slog.Warn("SMTP host not configured, confirmation mail disabled")
	}

	// Session authentication
	authService := authsvc.NewService(repo, tokens, mailer)

	// Rate limiting
	var limiter appmiddleware.RateLimitStore
	if cfg.RateLimit.RedisAddr != "" {
		store := appmiddleware.NewRedisStore(cfg.RateLimit.RedisAddr)
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				slog.Error("failed to close redis connection", "error", closeErr)
			}
		}()
		limiter = store
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e)
	setupRoutes(e, cfg, repo, authService, limiter)

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(
	e *echo.Echo,
	cfg *config.Config,
	repo *repository.Repository,
	authService *authsvc.Service,
	limiter appmiddleware.RateLimitStore,
) {
	h := handlers.New()
	authHandlers := handlers.NewAuth(authService)
	contactHandlers := handlers.NewContacts(repo)
	userHandlers := handlers.NewUsers(repo)

	requireUser := appmiddleware.RequireUser(authService)
	createLimit := appmiddleware.RateLimit(limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window)

	e.GET("/health", h.Health)

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", authHandlers.Signup)
	auth.POST("/login", authHandlers.Login)
	auth.GET("/refresh_token", authHandlers.Refresh)
	auth.GET("/confirm_email/:token", authHandlers.ConfirmEmail)
	auth.POST("/request_email", authHandlers.RequestEmail)
	auth.POST("/logout", authHandlers.Logout, requireUser)

	users := api.Group("/users", requireUser)
	users.GET("/me", userHandlers.Me)
	users.PATCH("/avatar", userHandlers.UpdateAvatar)

	contacts := api.Group("/contacts", requireUser)
	contacts.POST("", contactHandlers.Create, createLimit)
	contacts.GET("", contactHandlers.List)
	contacts.GET("/birthday", contactHandlers.Birthdays)
	contacts.GET("/:id", contactHandlers.Get)
	contacts.PUT("/:id", contactHandlers.Update)
	contacts.DELETE("/:id", contactHandlers.Delete)
}

// tokenService builds the token service from the configured signing
// key. Without a configured key a random one is generated, which
// invalidates all outstanding tokens on restart.
func tokenService(cfg *config.Config) (*token.Service, error) {
	var signingKey []byte
	if cfg.Auth.SigningKey != "" {
		signingKey = []byte(cfg.Auth.SigningKey)
	} else {
		key, err := token.RandomSigningKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signing key: %w", err)
		}
		signingKey = key
		slog.Warn("no signing key configured, using a random key",
			"hint", "tokens will not survive a restart",
		)
	}

	return token.NewService(signingKey, token.Lifetimes{
		Access:  cfg.Auth.AccessTokenTTL,
		Refresh: cfg.Auth.RefreshTokenTTL,
		Email:   cfg.Auth.EmailTokenTTL,
	}), nil
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
