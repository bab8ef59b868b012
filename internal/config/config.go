package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type MobizonConfig struct {
	APIKey   string `yaml:"api_key"`
	SenderID string `yaml:"sender_id"`
	DryRun   bool   `yaml:"dry_run"`
	BaseURL  string `yaml:"base_url"`
}

type TelegramConfig struct {
	BotToken   string `yaml:"bot_token"`
	WebhookURL string `yaml:"webhook_url"`
}

type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	AccessTokenTTL    time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `yaml:"refresh_token_ttl"`
	CodeTTL           time.Duration `yaml:"code_ttl"`
	CodeSweepInterval time.Duration `yaml:"code_sweep_interval"`

	// per client IP, applied to /auth/*/request
	CodeRequestsPerMinute int `yaml:"code_requests_per_minute"`
}

type ReviewConfig struct {
	// "mastery" or "date"
	DuePolicy  string `yaml:"due_policy"`
	DueLimit   int    `yaml:"due_limit"`
	MasteredAt int    `yaml:"mastered_at"`
}

type ReportConfig struct {
	// TTF with Cyrillic glyphs, e.g. assets/fonts/DejaVuSans.ttf
	FontPath string `yaml:"font_path"`
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		DSN          string `yaml:"url"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"database"`
	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUser     string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
	} `yaml:"email"`
	Mobizon  MobizonConfig  `yaml:"mobizon"`
	Telegram TelegramConfig `yaml:"telegram"`
	Auth     AuthConfig     `yaml:"auth"`
	Review   ReviewConfig   `yaml:"review"`
	Report   ReportConfig   `yaml:"report"`
}

// LoadConfig reads the YAML file at path (DefaultPath when empty), then applies
// .env / environment overrides for secrets and fills defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// env-only deployments
	default:
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Database.DSN, "DATABASE_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Email.SMTPPassword, "SMTP_PASSWORD")
	setString(&c.Mobizon.APIKey, "MOBIZON_API_KEY")
	setString(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.Port = n
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.CodeTTL <= 0 {
		c.Auth.CodeTTL = 5 * time.Minute
	}
	if c.Auth.CodeRequestsPerMinute <= 0 {
		c.Auth.CodeRequestsPerMinute = 5
	}
	if c.Auth.CodeSweepInterval <= 0 {
		c.Auth.CodeSweepInterval = time.Minute
	}
	if c.Review.DuePolicy == "" {
		c.Review.DuePolicy = "mastery"
	}
	if c.Review.DueLimit <= 0 {
		c.Review.DueLimit = 20
	}
	if c.Review.MasteredAt <= 0 {
		c.Review.MasteredAt = 3
	}
	if c.Mobizon.BaseURL == "" {
		c.Mobizon.BaseURL = "https://api.mobizon.kz"
	}
}

func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("config: database.url (or DATABASE_URL) is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret (or JWT_SECRET) is required")
	}
	switch c.Review.DuePolicy {
	case "mastery", "date":
	default:
		return fmt.Errorf("config: unknown review.due_policy %q", c.Review.DuePolicy)
	}
	return nil
}
