package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skillpath/internal/prompt"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	LLM        LLMConfig         `yaml:"llm"`
	YouTube    YouTubeConfig     `yaml:"youtube"`
	Generation GenerationConfig  `yaml:"generation"`
	Storage    StorageConfig     `yaml:"storage"`
	Inbox      InboxConfig       `yaml:"inbox"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    validation.Validatable
	}{
		{"app", &c.App},
		{"llm", &c.LLM},
		{"youtube", &c.YouTube},
		{"generation", &c.Generation},
		{"storage", &c.Storage},
		{"inbox", &c.Inbox},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
	CORS     CORSConfig `yaml:"cors"`
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

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LLMConfig holds the chat completion endpoint settings.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate validates the LLM configuration. The key is checked when the
// client is built so that commands which never call the LLM still start.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// YouTubeConfig holds video search settings. An empty APIKey disables search.
type YouTubeConfig struct {
	APIKey         string        `yaml:"api_key"`
	ResultsPerTerm int           `yaml:"results_per_term"`
	Timeout        time.Duration `yaml:"timeout"`
}

// Enabled reports whether video search is configured.
func (c *YouTubeConfig) Enabled() bool {
	return c.APIKey != ""
}

// Validate validates the YouTube configuration.
func (c *YouTubeConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ResultsPerTerm, validation.Min(1), validation.Max(50)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// GenerationConfig holds course generation defaults.
type GenerationConfig struct {
	Mode        string `yaml:"mode"`
	Concurrency int    `yaml:"concurrency"`
}

// Validate validates the generation configuration.
func (c *GenerationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(string(prompt.ModeFull), string(prompt.ModeStructure))),
		validation.Field(&c.Concurrency, validation.Min(1), validation.Max(32)),
	)
}

// StorageConfig selects the relational course store and the local fallback.
type StorageConfig struct {
	Driver      string         `yaml:"driver"`
	SQLite      SQLiteConfig   `yaml:"sqlite"`
	Postgres    PostgresConfig `yaml:"postgres"`
	FallbackDir string         `yaml:"fallback_dir"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres, DriverNone)),
		validation.Field(&c.FallbackDir, validation.Required),
	); err != nil {
		return err
	}
	switch c.Driver {
	case DriverSQLite:
		return c.SQLite.Validate()
	case DriverPostgres:
		return c.Postgres.Validate()
	}
	return nil
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

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// Validate validates the PostgreSQL configuration.
func (c *PostgresConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DSN, validation.Required),
	)
}

// InboxConfig configures the watched import directory.
type InboxConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// Validate validates the inbox configuration.
func (c *InboxConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.When(c.Enabled, validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 3001,
			},
			CORS: CORSConfig{
				AllowedOrigins: []string{"http://localhost:5173"},
			},
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     120 * time.Second,
		},
		YouTube: YouTubeConfig{
			ResultsPerTerm: 1,
			Timeout:        15 * time.Second,
		},
		Generation: GenerationConfig{
			Mode:        string(prompt.ModeFull),
			Concurrency: 4,
		},
		Storage: StorageConfig{
			Driver: DriverSQLite,
			SQLite: SQLiteConfig{
				Path: "./skillpath.db",
			},
			FallbackDir: "./data/courses",
		},
		Inbox: InboxConfig{
			Dir: "./data/inbox",
		},
	}
}
