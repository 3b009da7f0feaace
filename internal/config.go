package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sitedesk/internal/content"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Content    ContentConfig     `yaml:"content"`
	I18n       I18nConfig        `yaml:"i18n"`
	Categories FileConfig        `yaml:"categories"`
	Site       FileConfig        `yaml:"site"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Events     EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Content.Validate(); err != nil {
		return fmt.Errorf("content: %w", err)
	}
	if len(c.I18n.Languages) == 0 {
		c.I18n.Languages = c.Content.Languages
	}
	if err := c.I18n.Validate(); err != nil {
		return fmt.Errorf("i18n: %w", err)
	}
	if err := c.Categories.Validate(); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel    slog.Level     `yaml:"log_level"`
	LogFile     string         `yaml:"log_file"`
	LogRotation RotationConfig `yaml:"log_rotation"`
	HTTP        HTTPConfig     `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := c.LogRotation.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// RotationConfig controls rotation of the optional log file.
type RotationConfig struct {
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
}

// Validate validates the rotation configuration.
func (c *RotationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxSizeMB, validation.Min(0)),
		validation.Field(&c.MaxBackups, validation.Min(0)),
		validation.Field(&c.MaxAgeDays, validation.Min(0)),
	)
}

// HTTPConfig holds HTTP server configuration.
//
// The admin API has no authentication, so it binds to loopback and rejects
// non-loopback peers unless AllowRemote is set.
type HTTPConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	AllowRemote bool   `yaml:"allow_remote"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ContentConfig describes the content tree.
type ContentConfig struct {
	Root        string   `yaml:"root"`
	Extensions  []string `yaml:"extensions"`
	Languages   []string `yaml:"languages"`
	DefaultLang string   `yaml:"default_lang"`
	Ignore      []string `yaml:"ignore"`
}

// Validate validates the content configuration.
func (c *ContentConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Extensions, validation.Required, validation.Each(validation.By(isExtension))),
		validation.Field(&c.Languages, validation.Required, validation.Each(validation.Required)),
		validation.Field(&c.DefaultLang, validation.Required, validation.In(toAny(c.Languages)...).Error("must be one of the configured languages")),
	)
}

// Scanner converts the section into the content layout configuration.
func (c *ContentConfig) Scanner() content.Config {
	return content.Config{
		Extensions:  c.Extensions,
		Languages:   c.Languages,
		DefaultLang: c.DefaultLang,
		Ignore:      c.Ignore,
	}
}

// I18nConfig locates the translation files (<dir>/<lang>.json).
type I18nConfig struct {
	Dir       string   `yaml:"dir"`
	Languages []string `yaml:"languages"`
}

// Validate validates the i18n configuration.
func (c *I18nConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.Languages, validation.Required, validation.Each(validation.Required)),
	)
}

// FileConfig locates a single data file.
type FileConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the file configuration.
func (c *FileConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite search index configuration. An empty path
// disables the index.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether the search index is configured.
func (c *SQLiteConfig) Enabled() bool {
	return c.Path != ""
}

// EventsConfig controls the change event stream.
type EventsConfig struct {
	// Throttle is the minimum gap between catalog.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

func isExtension(v any) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return errors.New("must start with a dot")
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			LogRotation: RotationConfig{
				MaxSizeMB:  10,
				MaxBackups: 3,
				MaxAgeDays: 28,
			},
			HTTP: HTTPConfig{
				Host: "127.0.0.1",
				Port: 3001,
			},
		},
		Content: ContentConfig{
			Root:        "./src/content",
			Extensions:  []string{".md", ".mdx"},
			Languages:   []string{"en", "fa"},
			DefaultLang: "en",
		},
		I18n: I18nConfig{
			Dir: "./src/i18n",
		},
		Categories: FileConfig{
			Path: "./src/data/categories.yaml",
		},
		Site: FileConfig{
			Path: "./src/data/site.yaml",
		},
		SQLite: SQLiteConfig{
			Path: "./.sitedesk/index.db",
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
