// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package config builds the application configuration from CLI flags,
// environment variables and an optional TOML file.
package config

import (
	"fmt"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var configFile = altsrc.StringSourcer("config.toml")

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	SMTP      SMTPConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host    string
	Port    int
	BaseURL string
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

type AuthConfig struct { //nolint:govet // fieldalignment not critical for config structs
	SigningKey      string        // HMAC signing key; a random key is generated when empty
	AccessTokenTTL  time.Duration // access token lifetime
	RefreshTokenTTL time.Duration // refresh token lifetime
	EmailTokenTTL   time.Duration // email verification token lifetime
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

type RateLimitConfig struct { //nolint:govet // fieldalignment not critical for config structs
	RedisAddr string        // empty disables rate limiting
	Requests  int64         // allowed requests per window
	Window    time.Duration // window size
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:    cmd.String("host"),
			Port:    int(cmd.Int("port")),
			BaseURL: cmd.String("base-url"),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			SigningKey:      cmd.String("signing-key"),
			AccessTokenTTL:  cmd.Duration("access-token-ttl"),
			RefreshTokenTTL: cmd.Duration("refresh-token-ttl"),
			EmailTokenTTL:   cmd.Duration("email-token-ttl"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		RateLimit: RateLimitConfig{
			RedisAddr: cmd.String("redis-addr"),
			Requests:  int64(cmd.Int("rate-limit-requests")),
			Window:    cmd.Duration("rate-limit-window"),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}

	return cfg
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL used in confirmation links",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/contactdesk.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		&cli.StringFlag{
			Name:    "signing-key",
			Usage:   "Token signing key (random per process if empty; tokens then die on restart)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SIGNING_KEY"), toml.TOML("auth.signing_key", configFile)),
		},
		&cli.DurationFlag{
			Name:    "access-token-ttl",
			Value:   15 * time.Minute,
			Usage:   "Access token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("ACCESS_TOKEN_TTL"), toml.TOML("auth.access_token_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "refresh-token-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Refresh token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REFRESH_TOKEN_TTL"), toml.TOML("auth.refresh_token_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "email-token-ttl",
			Value:   7 * 24 * time.Hour,
			Usage:   "Email verification token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("EMAIL_TOKEN_TTL"), toml.TOML("auth.email_token_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (confirmation mail disabled if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "From address for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Contactdesk",
			Usage:   "From display name for outgoing mail",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Use TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Usage:   "Redis address for rate limiting (disabled if empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("REDIS_ADDR"), toml.TOML("ratelimit.redis_addr", configFile)),
		},
		&cli.IntFlag{
			Name:    "rate-limit-requests",
			Value:   1,
			Usage:   "Allowed contact creations per window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT_REQUESTS"), toml.TOML("ratelimit.requests", configFile)),
		},
		&cli.DurationFlag{
			Name:    "rate-limit-window",
			Value:   10 * time.Second,
			Usage:   "Rate limit window",
			Sources: cli.NewValueSourceChain(cli.EnvVar("RATE_LIMIT_WINDOW"), toml.TOML("ratelimit.window", configFile)),
		},
	}
}
