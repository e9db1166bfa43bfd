package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Editor      EditorConfig      `toml:"editor"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify client-credentials settings for catalog search.
type SpotifyConfig struct {
	ClientID     string  `toml:"client_id"`
	ClientSecret string  `toml:"client_secret"`
	RateLimit    float64 `toml:"rate_limit"`
}

// OpenAIConfig contains settings for the text-completion endpoint.
type OpenAIConfig struct {
	APIKey    string  `toml:"api_key"`
	BaseURL   string  `toml:"base_url"`
	Model     string  `toml:"model"`
	RateLimit float64 `toml:"rate_limit"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EditorConfig tunes the edit engine.
type EditorConfig struct {
	ClassifyTimeout int `toml:"classify_timeout"`
	SearchLimit     int `toml:"search_limit"`
	DefaultExpandBy int `toml:"default_expand_by"`
}

// ClassifyTimeoutDuration returns the classification timeout, or zero when disabled.
func (e EditorConfig) ClassifyTimeoutDuration() time.Duration {
	if e.ClassifyTimeout <= 0 {
		return 0
	}
	return time.Duration(e.ClassifyTimeout) * time.Second
}

// LogConfig controls logger level and destination.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %w", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the given .env files (default ".env") into the process environment.
//
// A missing file is not an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides credentials and paths with values from the environment, when set.
func (c *Config) ApplyEnv() {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Credentials.Spotify.ClientID, "SPOTIFY_ID", "SPOTIFY_CLIENT_ID")
	set(&c.Credentials.Spotify.ClientSecret, "SPOTIFY_SECRET", "SPOTIFY_CLIENT_SECRET")
	set(&c.Credentials.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&c.Credentials.OpenAI.Model, "OPENAI_MODEL")
	set(&c.Credentials.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&c.Database.Path, "PLX_DATABASE_PATH")
	set(&c.Log.Level, "PLX_LOG_LEVEL")
}

// HasSpotifyCredentials reports whether catalog credentials look configured.
func (c *Config) HasSpotifyCredentials() bool {
	s := c.Credentials.Spotify
	return isConfigured(s.ClientID) && isConfigured(s.ClientSecret)
}

// HasOpenAICredentials reports whether an API key for the completion endpoint looks configured.
func (c *Config) HasOpenAICredentials() bool {
	return isConfigured(c.Credentials.OpenAI.APIKey)
}

// isConfigured treats placeholder values from the example config as unset.
func isConfigured(v string) bool {
	return v != "" && !strings.HasPrefix(v, "your_")
}
