package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, Options{Level: "warn", Format: "json"})
	require.NoError(t, err)
	defer l.Close()

	l.Info().Msg("hidden")
	l.Warn().Str("vault", "ab").Msg("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "ab", entry["vault"])
	assert.Equal(t, "warn", entry["level"])
}

func TestAuditFile(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit.log")
	l, err := newLogger(&bytes.Buffer{}, Options{AuditFile: auditPath})
	require.NoError(t, err)

	audit := l.Audit()
	audit.Info().Str("op", "mint_shares").Send()
	require.NoError(t, l.Close())

	data, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"op":"mint_shares"`)
	assert.Contains(t, string(data), `"log":"audit"`)
}

func TestAuditDisabledByDefault(t *testing.T) {
	l, err := newLogger(&bytes.Buffer{}, Options{})
	require.NoError(t, err)
	assert.Equal(t, zerolog.Disabled, l.Audit().GetLevel())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}
