package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config holds the server settings.
type Config struct {
	Port    int    `koanf:"port" yaml:"port"`
	DataDir string `koanf:"data_dir" yaml:"data_dir"`
	GinMode string `koanf:"gin_mode" yaml:"gin_mode"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level" yaml:"log_level"`

	DefaultImageURL string `koanf:"default_image_url" yaml:"default_image_url"`
	MaxImageBytes   int    `koanf:"max_image_bytes" yaml:"max_image_bytes"`
	// MaxUploadBytes caps a chosen file before it is encoded; larger files
	// are rejected and the current image is kept.
	MaxUploadBytes    int64         `koanf:"max_upload_bytes" yaml:"max_upload_bytes"`
	ImageCheckTimeout time.Duration `koanf:"image_check_timeout" yaml:"image_check_timeout"`

	// Replacing the profile picture over HTTP requires logging in with
	// these. Without a password the upload form is disabled.
	AdminUser     string `koanf:"admin_user" yaml:"admin_user,omitempty"`
	AdminPassword string `koanf:"admin_password" yaml:"-"`

	SMTPHost  string `koanf:"smtp_host" yaml:"smtp_host,omitempty"`
	SMTPPort  string `koanf:"smtp_port" yaml:"smtp_port,omitempty"`
	SMTPUser  string `koanf:"smtp_user" yaml:"smtp_user,omitempty"`
	SMTPPass  string `koanf:"smtp_pass" yaml:"-"`
	ContactTo string `koanf:"contact_to" yaml:"contact_to,omitempty"`
}

// legacyEnv maps the bare variable names the site has always read (usually
// from .env) onto config keys.
var legacyEnv = map[string]string{
	"PORT":      "port",
	"GIN_MODE":  "gin_mode",
	"SMTP_HOST": "smtp_host",
	"SMTP_PORT": "smtp_port",
	"SMTP_USER": "smtp_user",
	"SMTP_PASS": "smtp_pass",
	"TO_EMAIL":  "contact_to",

	"ADMIN_USERNAME": "admin_user",
	"ADMIN_PASSWORD": "admin_password",
}

// Load reads configuration from the given YAML file, then overlays the
// legacy variables and finally PORTFOLIO_* overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return legacyEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading legacy env: %w", err)
	}

	// PORTFOLIO_DATA_DIR -> data_dir, etc.
	if err := k.Load(env.Provider("PORTFOLIO_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PORTFOLIO_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path. The SMTP password is never written.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validGinModes = map[string]bool{"debug": true, "release": true, "test": true}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.GinMode != "" && !validGinModes[c.GinMode] {
		return fmt.Errorf("invalid gin_mode %q: must be one of debug, release, test", c.GinMode)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	u, err := url.Parse(c.DefaultImageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("default_image_url must be an absolute http(s) URL, got %q", c.DefaultImageURL)
	}
	if c.MaxImageBytes < 0 {
		return fmt.Errorf("max_image_bytes must be non-negative")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive")
	}
	if c.ImageCheckTimeout <= 0 {
		return fmt.Errorf("image_check_timeout must be positive")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

// DatabasePath is where the key-value store lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "portfolio.db")
}

// UploadsEnabled reports whether the profile picture can be replaced over HTTP.
func (c *Config) UploadsEnabled() bool {
	return c.AdminPassword != ""
}

// MailConfigured reports whether contact form submissions can be sent.
func (c *Config) MailConfigured() bool {
	return c.SMTPUser != "" && c.SMTPPass != ""
}
