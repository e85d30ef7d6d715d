// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v3"
)

func TestNewFromCLI(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			// Verify defaults are applied
			assert.NotNil(t, cfg)
			assert.Equal(t, "localhost", cfg.Server.Host)
			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "info", cfg.Log.Level)
			assert.Equal(t, "text", cfg.Log.Format)
			assert.Equal(t, "./data/contactdesk.db", cfg.Database.DSN)
			assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
			assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
			assert.Equal(t, int64(1), cfg.RateLimit.Requests)
			assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
			assert.Empty(t, cfg.RateLimit.RedisAddr)

			// BaseURL should be auto-generated
			assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)

			return nil
		},
	}

	err := app.Run(context.Background(), []string{"test"})
	assert.NoError(t, err)
}

func TestNewFromCLI_WithCustomValues(t *testing.T) {
	app := &cli.Command{
		Name:  "test",
		Flags: Flags(),
		Action: func(_ context.Context, cmd *cli.Command) error {
			cfg := NewFromCLI(cmd)

			assert.Equal(t, "0.0.0.0", cfg.Server.Host)
			assert.Equal(t, 9000, cfg.Server.Port)
			assert.Equal(t, "https://example.com", cfg.Server.BaseURL)
			assert.Equal(t, "debug", cfg.Log.Level)
			assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTokenTTL)
			assert.Equal(t, "localhost:6379", cfg.RateLimit.RedisAddr)
			assert.Equal(t, int64(20), cfg.RateLimit.Requests)
			assert.Equal(t, time.Minute, cfg.RateLimit.Window)

			return nil
		},
	}

	args := []string{
		"test",
		"--host", "0.0.0.0",
		"--port", "9000",
		"--base-url", "https://example.com",
		"--log-level", "debug",
		"--access-token-ttl", "5m",
		"--redis-addr", "localhost:6379",
		"--rate-limit-requests", "20",
		"--rate-limit-window", "1m",
	}
	err := app.Run(context.Background(), args)
	assert.NoError(t, err)
}
