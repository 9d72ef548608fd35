package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	for _, name := range []string{"veilvault.json", "veilvault.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, DefaultConfig(), cfg)
			assert.FileExists(t, path)

			again, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, again)
		})
	}
}

func TestLoadConfigYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veilvault.yml")
	require.NoError(t, os.WriteFile(path, []byte("verifier: passthrough\nlog_level: debug\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, VerifierPassThrough, cfg.Verifier)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultConfig().DBPath, cfg.DBPath)
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "veilvault.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"bad program id":     func(c *Config) { c.ProgramID = "xyz" },
		"zero program id":    func(c *Config) { c.ProgramID = "0000000000000000000000000000000000000000000000000000000000000000" },
		"no db path":         func(c *Config) { c.DBPath = "" },
		"unknown verifier":   func(c *Config) { c.Verifier = "none" },
		"groth16 no keys":    func(c *Config) { c.KeyDir = "" },
		"unknown log format": func(c *Config) { c.LogFormat = "xml" },
		"audit without path": func(c *Config) { c.AuditLogPath = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
