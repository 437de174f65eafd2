// Package config loads the server's settings from environment variables.
//
// Missing identity-provider credentials and a missing session secret are not
// fatal: the server still starts and serves the public pages. They are
// reported by Warnings so the caller can log them. Values that are present
// but malformed (a non-numeric PORT, an unknown environment) fail Load.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rumora/website/internal/auth"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds all application configuration.
type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	Environment string `validate:"oneof=development production test"`
	BaseURL     string `validate:"required,url"`

	DiscordClientID     string
	DiscordClientSecret string
	DiscordRedirectURI  string `validate:"required,url"`

	SessionSecret string
	SessionTTL    time.Duration `validate:"gt=0"`
	OAuthTimeout  time.Duration `validate:"gt=0"`

	// AdminIDs is the allow-list of provider user IDs granted isAdmin at
	// account creation.
	AdminIDs []string

	// TemplateDir overrides the embedded HTML documents when set.
	TemplateDir string
}

// Load reads configuration from the environment, applies defaults and
// validates the result.
func Load() (Config, error) {
	port, err := getEnvInt("PORT", 3000)
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}

	oauthTimeout, err := getEnvDuration("OAUTH_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("parse OAUTH_TIMEOUT: %w", err)
	}

	sessionTTL, err := getEnvDuration("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("parse SESSION_TTL: %w", err)
	}

	baseURL := strings.TrimRight(getEnv("BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/")

	cfg := Config{
		Port:                port,
		Environment:         strings.ToLower(getEnv("APP_ENV", getEnv("NODE_ENV", EnvProduction))),
		BaseURL:             baseURL,
		DiscordClientID:     getEnv("DISCORD_CLIENT_ID", ""),
		DiscordClientSecret: getEnv("DISCORD_CLIENT_SECRET", ""),
		DiscordRedirectURI:  getEnv("DISCORD_REDIRECT_URI", baseURL+"/auth/discord/callback"),
		SessionSecret:       getEnv("SESSION_SECRET", ""),
		SessionTTL:          sessionTTL,
		OAuthTimeout:        oauthTimeout,
		AdminIDs:            splitList(getEnv("ADMIN_IDS", "")),
		TemplateDir:         getEnv("TEMPLATE_DIR", ""),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// DiscordConfigured reports whether both Discord credentials are present.
func (c Config) DiscordConfigured() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

// IsDevelopment reports whether error details may be shown to clients.
func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Warnings lists non-fatal configuration gaps, one sentence each.
func (c Config) Warnings() []string {
	var w []string
	if c.DiscordClientID == "" {
		w = append(w, "DISCORD_CLIENT_ID not set: Discord sign-in is disabled")
	}
	if c.DiscordClientSecret == "" {
		w = append(w, "DISCORD_CLIENT_SECRET not set: Discord sign-in is disabled")
	}
	switch {
	case c.SessionSecret == "":
		w = append(w, "SESSION_SECRET not set: using a random per-process secret")
	case len(c.SessionSecret) < auth.MinSecretLength:
		w = append(w, fmt.Sprintf("SESSION_SECRET shorter than %d characters: using a random per-process secret", auth.MinSecretLength))
	}
	return w
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(v)
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
