package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

//go:embed config.example.toml
var exampleConf []byte

const appName = "muziek"

// CallbackPath is the only path the callback listener serves.
const CallbackPath = "/callback"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Settings SettingsConfig `toml:"settings"`
	YouTube  YouTubeConfig  `toml:"youtube"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SettingsConfig selects where token material is persisted.
type SettingsConfig struct {
	Backend        string `toml:"backend"`
	KeyringService string `toml:"keyring_service"`
	Prefix         string `toml:"prefix"`
}

// YouTubeConfig contains OAuth2 client credentials and YouTube Data API endpoints.
type YouTubeConfig struct {
	ClientID          string        `toml:"client_id"`
	ClientSecret      string        `toml:"client_secret"`
	AuthURL           string        `toml:"auth_url"`
	TokenURL          string        `toml:"token_url"`
	APIURL            string        `toml:"api_url"`
	RedirectURI       string        `toml:"redirect_uri"`
	RequestModify     bool          `toml:"request_modify"`
	PromptTimeout     time.Duration `toml:"prompt_timeout"`
	PageSize          int           `toml:"page_size"`
	RequestsPerSecond float64       `toml:"requests_per_second"`
}

// CallbackAddr returns the host:port the callback listener must bind, taken from the redirect URI.
//
// The redirect URI must end in [CallbackPath], since that is where the listener waits for the code.
func (c YouTubeConfig) CallbackAddr() (string, error) {
	u, err := url.Parse(c.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect_uri: %v", ErrInvalidConfig, err)
	}
	if u.Host == "" || u.Port() == "" {
		return "", fmt.Errorf("%w: redirect_uri %q must include host and port", ErrInvalidConfig, c.RedirectURI)
	}
	if u.Path != CallbackPath {
		return "", fmt.Errorf("%w: redirect_uri %q must use the path %s", ErrInvalidConfig, c.RedirectURI, CallbackPath)
	}
	return u.Host, nil
}

// Validate reports whether the credentials required for authorization are present.
func (c YouTubeConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("%w: youtube client_id and client_secret must be set", ErrMissingCredentials)
	}
	if _, err := c.CallbackAddr(); err != nil {
		return err
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
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

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FindConfigFile returns path when it exists, otherwise the first muziek/config.toml found in the XDG config dirs.
func FindConfigFile(path string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	found, err := xdg.SearchConfigFile(filepath.Join(appName, "config.toml"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	return found, nil
}

// DatabasePath resolves the configured database path, defaulting to the XDG data directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}

	path, err := xdg.DataFile(filepath.Join(appName, appName+".db"))
	if err != nil {
		return "", fmt.Errorf("failed to resolve database path: %w", err)
	}
	return path, nil
}
