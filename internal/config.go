package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/kdoc/internal/client"
	"github.com/starford/kdoc/internal/draft"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Images  ImagesConfig      `yaml:"images"`
	Console ConsoleConfig     `yaml:"console"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Images.Validate(); err != nil {
		return err
	}
	return c.Console.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds the path to the document directory.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ImagesConfig limits image uploads.
type ImagesConfig struct {
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// Validate validates the image configuration.
func (c *ImagesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxUploadMB, validation.Required, validation.Min(1), validation.Max(64)),
	)
}

// MaxBytes returns the upload cap in bytes.
func (c *ImagesConfig) MaxBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// ConsoleConfig configures the operator console and the CLI commands that
// talk to a document host.
type ConsoleConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	StateDir       string        `yaml:"state_dir"`
	Retries        int           `yaml:"retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	AutosaveDelay  time.Duration `yaml:"autosave_delay"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Validate validates the console configuration.
func (c *ConsoleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, validation.By(httpURL)),
		validation.Field(&c.StateDir, validation.Required),
		validation.Field(&c.Retries, validation.Min(0), validation.Max(5)),
		validation.Field(&c.RetryBaseDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.AutosaveDelay, validation.Min(time.Duration(0))),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

func httpURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// RetryPolicy returns the client retry policy for reads and idempotent writes.
func (c *ConsoleConfig) RetryPolicy() client.RetryPolicy {
	return client.RetryPolicy{Retries: c.Retries, BaseDelay: c.RetryBaseDelay}
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path: "./documents",
		},
		SQLite: SQLiteConfig{
			Path: "./kdoc.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Images: ImagesConfig{
			MaxUploadMB: 8,
		},
		Console: ConsoleConfig{
			BaseURL:        "http://localhost:8080",
			StateDir:       "./.kdoc",
			Retries:        client.DefaultRetry.Retries,
			RetryBaseDelay: client.DefaultRetry.BaseDelay,
			AutosaveDelay:  draft.DefaultDelay,
			Timeout:        30 * time.Second,
		},
	}
}
