/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/logging"
)

// Config represents the wiredto configuration
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	Port     int            `yaml:"port"`
	Bind     string         `yaml:"bind"`
	Security Security       `yaml:"security"`
	Limits   Limits         `yaml:"limits"`
	Journal  Journal        `yaml:"journal"`
	Logging  logging.Config `yaml:"logging"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Limits caps what the tools accept from untrusted bytes. Zero fields
// fall back to the protocol defaults.
type Limits struct {
	MaxStringBytes   int `yaml:"max_string_bytes"`
	MaxCollectionLen int `yaml:"max_collection_len"`
	MaxDepth         int `yaml:"max_depth"`
	MaxPayloadBytes  int `yaml:"max_payload_bytes"`
}

// Journal configures the capture journal.
type Journal struct {
	Path            string `yaml:"path"` // relative paths are under DataDir
	BufferSize      int    `yaml:"buffer_size"`
	FsyncIntervalMs int    `yaml:"fsync_interval_ms"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Security: Security{
			APIKey: "auto",
		},
		Limits: Limits{
			MaxStringBytes:   codec.MaxStringBytes,
			MaxCollectionLen: codec.MaxCollectionLen,
			MaxDepth:         codec.MaxDepth,
			MaxPayloadBytes:  1 << 20,
		},
		Journal: Journal{
			Path:            "journal.log",
			BufferSize:      4096,
			FsyncIntervalMs: 1000,
		},
		Logging: logging.DefaultConfig(),
	}
}

// LoadConfig loads configuration from the specified path. Keys missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// the file holds the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate rejects values no component could run with.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must be set")
	}
	if c.Limits.MaxStringBytes < 0 || c.Limits.MaxCollectionLen < 0 || c.Limits.MaxDepth < 0 || c.Limits.MaxPayloadBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if c.Journal.BufferSize < 0 || c.Journal.FsyncIntervalMs < 0 {
		return fmt.Errorf("journal settings must not be negative")
	}
	return nil
}

// CodecLimits returns the validation limits, clamped to the protocol
// ceilings.
func (c *Config) CodecLimits() codec.Limits {
	return codec.Limits{
		MaxStringBytes:   c.Limits.MaxStringBytes,
		MaxCollectionLen: c.Limits.MaxCollectionLen,
		MaxDepth:         c.Limits.MaxDepth,
	}.Clamp()
}

// MaxPayload is the largest payload the journal and corpus accept.
func (c *Config) MaxPayload() int {
	if c.Limits.MaxPayloadBytes <= 0 {
		return codec.MaxStringBytes
	}
	return c.Limits.MaxPayloadBytes
}

// JournalPath resolves the journal file against DataDir.
func (c *Config) JournalPath() string {
	if filepath.IsAbs(c.Journal.Path) {
		return c.Journal.Path
	}
	return filepath.Join(c.DataDir, c.Journal.Path)
}

// CorpusPath is the pebble directory for the fixture corpus.
func (c *Config) CorpusPath() string {
	return filepath.Join(c.DataDir, "corpus")
}

// FsyncInterval is the journal's periodic sync interval; zero disables it.
func (c *Config) FsyncInterval() time.Duration {
	return time.Duration(c.Journal.FsyncIntervalMs) * time.Millisecond
}

// Address is the listen address for the API server.
func (c *Config) Address() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./wiredto.yaml"
	}

	// ~/.config/wiredto/config.yaml
	return filepath.Join(homeDir, ".config", "wiredto", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
