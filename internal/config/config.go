package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds application configuration
type Config struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	DBDriver        string        `env:"DB_DRIVER" envDefault:"postgres"`
	DBConn          string        `env:"DB_CONN" envDefault:"host=localhost port=5432 user=todo password=todo dbname=todoism sslmode=disable"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"INFO"`
	SecretKey       string        `env:"SECRET_KEY"`
	SessionBlockKey string        `env:"SESSION_BLOCK_KEY"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
	ItemsPerPage    int           `env:"ITEMS_PER_PAGE" envDefault:"10"`
	APIBaseURL      string        `env:"API_BASE_URL"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	MaintenanceCron string        `env:"MAINTENANCE_CRON" envDefault:"@every 5m"`
	SMTPHost        string        `env:"SMTP_HOST"`
	SMTPPort        string        `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername    string        `env:"SMTP_USERNAME"`
	SMTPPassword    string        `env:"SMTP_PASSWORD"`
	SenderEmail     string        `env:"SENDER_EMAIL"`
	AdminEmail      string        `env:"ADMIN_EMAIL"`
}

// NewConfig loads configuration from environment variables
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and their shapes.
func (c *Config) Validate() error {
	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is required")
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	switch len(c.SessionBlockKey) {
	case 0, 16, 24, 32:
	default:
		return fmt.Errorf("SESSION_BLOCK_KEY must be 16, 24, or 32 bytes, got %d", len(c.SessionBlockKey))
	}
	if c.ItemsPerPage < 1 {
		return fmt.Errorf("ITEMS_PER_PAGE must be positive")
	}
	return nil
}

// MailEnabled reports whether error mails can be sent.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.AdminEmail != ""
}
