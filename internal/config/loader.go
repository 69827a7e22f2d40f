package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/example/eventboard/internal/content"
)

// Config captures the settings of the event board service.
type Config struct {
	HTTPPort      int             `yaml:"http_port"`
	BaseURL       string          `yaml:"base_url"`
	SQLiteDSN     string          `yaml:"sqlite_dsn"`
	SessionTTL    time.Duration   `yaml:"session_ttl"`
	CookieSecure  bool            `yaml:"cookie_secure"`
	Timezone      string          `yaml:"timezone"`
	QuotaLimit    int             `yaml:"quota_limit"`
	LogLevel      string          `yaml:"log_level"`
	PurgeSchedule string          `yaml:"purge_schedule"`
	RateLimit     RateLimit       `yaml:"rate_limit"`
	OAuth         OAuth           `yaml:"oauth"`
	Admins        []string        `yaml:"bootstrap_admins"`
	Images        []content.Image `yaml:"images"`

	// Location is resolved from Timezone by Load.
	Location *time.Location `yaml:"-"`
}

// OAuth holds the Microsoft identity platform application registration.
type OAuth struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Tenant       string `yaml:"tenant"`
	RedirectURL  string `yaml:"redirect_url"`
}

// RateLimit bounds API requests per signed-in user.
type RateLimit struct {
	PerMinute int `yaml:"per_minute"`
	Burst     int `yaml:"burst"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPPort:      8080,
		BaseURL:       "http://localhost:8080",
		SessionTTL:    24 * time.Hour,
		CookieSecure:  true,
		Timezone:      "America/New_York",
		QuotaLimit:    3,
		LogLevel:      "info",
		PurgeSchedule: "0 * * * *",
		RateLimit:     RateLimit{PerMinute: 120, Burst: 60},
		OAuth:         OAuth{Tenant: "common"},
	}
}

// Load builds the configuration from, in increasing precedence, the defaults,
// the YAML file named by EVENTBOARD_CONFIG, and EVENTBOARD_* environment
// variables. A .env file in the working directory is loaded first when present.
//
// Every missing or invalid key is reported in a single error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("EVENTBOARD_CONFIG")); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	missing := make([]string, 0, 2)
	invalid := make([]string, 0, 2)

	if v := env("EVENTBOARD_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "EVENTBOARD_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if v := env("EVENTBOARD_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if v := env("EVENTBOARD_SQLITE_DSN"); v != "" {
		cfg.SQLiteDSN = v
	}

	if v := env("EVENTBOARD_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "EVENTBOARD_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if v := env("EVENTBOARD_COOKIE_SECURE"); v != "" {
		secure, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "EVENTBOARD_COOKIE_SECURE")
		} else {
			cfg.CookieSecure = secure
		}
	}

	if v := env("EVENTBOARD_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if loc, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "EVENTBOARD_TIMEZONE")
	} else {
		cfg.Location = loc
	}

	if v := env("EVENTBOARD_QUOTA_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "EVENTBOARD_QUOTA_LIMIT")
		} else {
			cfg.QuotaLimit = limit
		}
	}

	if v := env("EVENTBOARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if v := env("EVENTBOARD_PURGE_SCHEDULE"); v != "" {
		cfg.PurgeSchedule = v
	}

	if v := env("EVENTBOARD_RATE_LIMIT_PER_MINUTE"); v != "" {
		perMinute, err := strconv.Atoi(v)
		if err != nil || perMinute <= 0 {
			invalid = append(invalid, "EVENTBOARD_RATE_LIMIT_PER_MINUTE")
		} else {
			cfg.RateLimit.PerMinute = perMinute
		}
	}
	if v := env("EVENTBOARD_RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil || burst <= 0 {
			invalid = append(invalid, "EVENTBOARD_RATE_LIMIT_BURST")
		} else {
			cfg.RateLimit.Burst = burst
		}
	}

	if v := env("EVENTBOARD_BOOTSTRAP_ADMINS"); v != "" {
		cfg.Admins = splitList(v)
	}

	if v := env("EVENTBOARD_OAUTH_CLIENT_ID"); v != "" {
		cfg.OAuth.ClientID = v
	}
	if v := env("EVENTBOARD_OAUTH_CLIENT_SECRET"); v != "" {
		cfg.OAuth.ClientSecret = v
	}
	if v := env("EVENTBOARD_OAUTH_TENANT"); v != "" {
		cfg.OAuth.Tenant = v
	}
	if v := env("EVENTBOARD_OAUTH_REDIRECT_URL"); v != "" {
		cfg.OAuth.RedirectURL = v
	}
	if cfg.OAuth.RedirectURL == "" {
		cfg.OAuth.RedirectURL = cfg.BaseURL + "/auth/callback"
	}

	if strings.TrimSpace(cfg.OAuth.ClientID) == "" {
		missing = append(missing, "EVENTBOARD_OAUTH_CLIENT_ID")
	}
	if strings.TrimSpace(cfg.OAuth.ClientSecret) == "" {
		missing = append(missing, "EVENTBOARD_OAUTH_CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid settings: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// loadFile merges the YAML document at path over cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
