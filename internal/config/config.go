// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the server needs at startup. Parsing and type
// conversion are handled by struct tags; only cross-field rules live in
// code.
type Config struct {
	Port   int    `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"carvalue.db"`

	// SessionSecret signs the session cookie. No default on purpose: a
	// guessable secret lets anyone mint sessions for any user.
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"168h"`

	// CookieSecure marks session cookies Secure (HTTPS-only). Off by
	// default so local development over plain HTTP works.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"false"`

	// GitHub OAuth. All three must be set together; leaving them empty
	// disables the GitHub sign-in routes.
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	// Rate limit on the credential endpoints (register/login), per
	// client IP.
	AuthRatePerMinute float64 `env:"AUTH_RATE_PER_MINUTE" envDefault:"10"`
	AuthRateBurst     int     `env:"AUTH_RATE_BURST" envDefault:"5"`
}

// GitHubEnabled reports whether the GitHub sign-in routes should be
// mounted.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != "" && c.GitHubCallbackURL != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT %d out of range", cfg.Port)
	}
	if len(cfg.SessionSecret) < 16 {
		return nil, fmt.Errorf("config: SESSION_SECRET must be at least 16 characters")
	}
	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("config: SESSION_TTL must be positive")
	}
	if cfg.AuthRatePerMinute <= 0 || cfg.AuthRateBurst < 1 {
		return nil, fmt.Errorf("config: auth rate limit must be positive")
	}

	partial := cfg.GitHubClientID != "" || cfg.GitHubClientSecret != "" || cfg.GitHubCallbackURL != ""
	if partial && !cfg.GitHubEnabled() {
		return nil, fmt.Errorf("config: GITHUB_CLIENT_ID, GITHUB_CLIENT_SECRET and GITHUB_CALLBACK_URL must be set together")
	}

	return &cfg, nil
}
