// Package config handles loading taskboard.toml configuration files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"taskboard/internal/paths"
	internalstrings "taskboard/internal/strings"
)

const (
	// DefaultAPIBaseURL is used when no config or environment override is present.
	DefaultAPIBaseURL = "http://localhost:3000/api/v1"

	// DefaultFrontendBaseURL is the base for confirmation and reset redirect links.
	DefaultFrontendBaseURL = "http://localhost:5173"

	// EnvAPIBaseURL overrides the API base URL.
	EnvAPIBaseURL = "TASKBOARD_API_URL"

	// EnvFrontendBaseURL overrides the frontend base URL.
	EnvFrontendBaseURL = "TASKBOARD_FRONTEND_URL"
)

// Config represents the taskboard.toml configuration file.
type Config struct {
	API      API      `toml:"api"`
	Frontend Frontend `toml:"frontend"`
}

// API contains settings for the REST boundary.
type API struct {
	// BaseURL is the API root, e.g. "http://localhost:3000/api/v1".
	BaseURL string `toml:"base-url"`
}

// Frontend contains settings for redirect links embedded in auth requests.
type Frontend struct {
	// BaseURL is the site users land on from confirmation and reset emails.
	BaseURL string `toml:"base-url"`
}

// Load loads configuration from the working directory and the global config
// file. A .env file in dir is applied first, the way the original web client
// reads its environment file; explicit environment variables win over
// everything.
func Load(dir string) (*Config, error) {
	// Best effort: a missing .env is the common case.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	globalDir, err := paths.DefaultConfigDir()
	if err != nil {
		return nil, err
	}

	globalCfg, globalMeta, err := loadConfigFile(filepath.Join(globalDir, "config.toml"))
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(dir, "taskboard.toml"))
	if err != nil {
		return nil, err
	}

	merged := mergeConfigs(globalCfg, projectCfg, globalMeta, projectMeta)
	applyEnv(merged)
	applyDefaults(merged)
	return merged, nil
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, globalMeta, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.API.BaseURL = mergeString(projectMeta.IsDefined("api", "base-url"), projectCfg.API.BaseURL, globalCfg.API.BaseURL)
	merged.Frontend.BaseURL = mergeString(projectMeta.IsDefined("frontend", "base-url"), projectCfg.Frontend.BaseURL, globalCfg.Frontend.BaseURL)
	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}

func applyEnv(cfg *Config) {
	if value := strings.TrimSpace(os.Getenv(EnvAPIBaseURL)); value != "" {
		cfg.API.BaseURL = value
	}
	if value := strings.TrimSpace(os.Getenv(EnvFrontendBaseURL)); value != "" {
		cfg.Frontend.BaseURL = value
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultAPIBaseURL
	}
	if cfg.Frontend.BaseURL == "" {
		cfg.Frontend.BaseURL = DefaultFrontendBaseURL
	}
	cfg.API.BaseURL = internalstrings.TrimTrailingSlash(cfg.API.BaseURL)
	cfg.Frontend.BaseURL = internalstrings.TrimTrailingSlash(cfg.Frontend.BaseURL)
}

// ConfirmSuccessURL is where the confirmation email sends new accounts.
func (c *Config) ConfirmSuccessURL() string {
	return c.Frontend.BaseURL + "/login"
}

// ResetRedirectURL is where the password reset email sends users.
func (c *Config) ResetRedirectURL() string {
	return c.Frontend.BaseURL + "/reset-password"
}
