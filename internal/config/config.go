// config.go - Configuration management for the vault service
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veilvault/veilvault/internal/ledger"
)

// Verifier kinds accepted in configuration.
const (
	VerifierGroth16     = "groth16"
	VerifierPassThrough = "passthrough"
)

// Config represents the application configuration
type Config struct {
	// Program identity; vault addresses are derived under it.
	ProgramID string `json:"program_id" yaml:"program_id"`

	// File paths
	DBPath string `json:"db_path" yaml:"db_path"` // vaults, proof records and the token ledger
	KeyDir string `json:"key_dir" yaml:"key_dir"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFile   string `json:"log_file" yaml:"log_file"`
	LogFormat string `json:"log_format" yaml:"log_format"`

	// Security
	Verifier     string `json:"verifier" yaml:"verifier"`
	EnableAudit  bool   `json:"enable_audit" yaml:"enable_audit"`
	AuditLogPath string `json:"audit_log_path" yaml:"audit_log_path"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ProgramID:    "5665696c5661756c740000000000000000000000000000000000000000000001",
		DBPath:       "veilvault.db",
		KeyDir:       "keys",
		LogLevel:     "info",
		LogFormat:    "console",
		Verifier:     VerifierGroth16,
		EnableAudit:  true,
		AuditLogPath: "audit.log",
	}
}

// LoadConfig loads configuration from file, or creates and saves the default.
// Files ending in .yaml or .yml are YAML; anything else is JSON. Fields missing
// from the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if isYAML(configPath) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isYAML(configPath) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := c.Program(); err != nil {
		return err
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must be set")
	}
	switch c.Verifier {
	case VerifierGroth16:
		if c.KeyDir == "" {
			return fmt.Errorf("key_dir must be set for the groth16 verifier")
		}
	case VerifierPassThrough:
	default:
		return fmt.Errorf("verifier must be %q or %q, got %q", VerifierGroth16, VerifierPassThrough, c.Verifier)
	}
	switch c.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.EnableAudit && c.AuditLogPath == "" {
		return fmt.Errorf("audit_log_path must be set when enable_audit is on")
	}
	return nil
}

// Program parses the configured program id.
func (c *Config) Program() (ledger.Address, error) {
	id, err := ledger.ParseAddress(c.ProgramID)
	if err != nil {
		return ledger.Address{}, fmt.Errorf("program_id: %w", err)
	}
	if id.IsZero() {
		return ledger.Address{}, fmt.Errorf("program_id must not be zero")
	}
	return id, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
