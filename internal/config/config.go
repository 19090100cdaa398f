package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Dev-only admin credentials used when none are configured.
const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// Config holds application configuration
type Config struct {
	Server  ServerConfig
	Site    SiteConfig
	Storage StorageConfig
	Admin   AdminConfig
	SMTP    SMTPConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// TrustedProxies lists the proxy addresses allowed to set the client IP
	// through forwarding headers. Empty means the remote address is used.
	TrustedProxies []string
}

type SiteConfig struct {
	Name string
	URL  string

	// ContentDir overrides the embedded documents when set.
	ContentDir string
}

type StorageConfig struct {
	DatabasePath     string
	VisitorRetention time.Duration
}

type AdminConfig struct {
	Username string
	Password string
}

// UsesDefaults reports whether the password is still the dev default. The
// username is not a secret, so keeping the default one is allowed.
func (a AdminConfig) UsesDefaults() bool {
	return a.Password == defaultAdminPassword
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	To       string
}

// Configured reports whether credentials for sending mail are present.
func (s SMTPConfig) Configured() bool {
	return s.User != "" && s.Password != ""
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name onto a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(l.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from the environment, after loading a .env file
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("SITE_NAME", "Joonas Pessi")
	v.SetDefault("SITE_URL", "http://localhost:8080")
	v.SetDefault("CONTENT_DIR", "")
	v.SetDefault("DATABASE_PATH", "site.db")
	v.SetDefault("VISITOR_RETENTION", "8760h")
	v.SetDefault("ADMIN_USERNAME", defaultAdminUsername)
	v.SetDefault("ADMIN_PASSWORD", defaultAdminPassword)
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASS", "")
	v.SetDefault("TO_EMAIL", "hello@joonaspessi.dev")

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			Mode:           v.GetString("GIN_MODE"),
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Site: SiteConfig{
			Name:       v.GetString("SITE_NAME"),
			URL:        strings.TrimRight(v.GetString("SITE_URL"), "/"),
			ContentDir: v.GetString("CONTENT_DIR"),
		},
		Storage: StorageConfig{
			DatabasePath:     v.GetString("DATABASE_PATH"),
			VisitorRetention: v.GetDuration("VISITOR_RETENTION"),
		},
		Admin: AdminConfig{
			Username: v.GetString("ADMIN_USERNAME"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			To:       v.GetString("TO_EMAIL"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
	return cfg, cfg.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate rejects configurations that must not reach production.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Storage.DatabasePath == "" {
		errs = append(errs, errors.New("DATABASE_PATH must not be empty"))
	}
	if c.Storage.VisitorRetention <= 0 {
		errs = append(errs, errors.New("VISITOR_RETENTION must be a positive duration"))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("GIN_MODE %q must be debug, release or test", c.Server.Mode))
	}
	if c.Server.Mode == "release" && c.Admin.UsesDefaults() {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be set in release mode"))
	}
	return errors.Join(errs...)
}
