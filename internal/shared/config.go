package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Client      ClientConfig      `toml:"client"`
}

// CredentialsConfig contains service credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// RefreshToken is the durable user credential; it seeds the token store on
// first run and is superseded by rotated tokens persisted to the database.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ClientConfig contains tuning knobs for the Spotify API client.
type ClientConfig struct {
	PageSize   int     `toml:"page_size"`
	MaxRetries int     `toml:"max_retries"`
	RateLimit  float64 `toml:"rate_limit"` // requests per second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyEnv()
	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.ApplyEnv()
	return &config
}

// ApplyEnv fills empty credential fields from environment variables so the
// tool works without a config file.
func (c *Config) ApplyEnv() {
	if c.Credentials.Spotify.ClientID == "" {
		c.Credentials.Spotify.ClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		c.Credentials.Spotify.ClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	}
	if c.Credentials.Spotify.RefreshToken == "" {
		c.Credentials.Spotify.RefreshToken = os.Getenv("SPOTIFY_REFRESH_TOKEN")
	}
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
