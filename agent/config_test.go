package agent_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/effective-security/mcpchat/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := agent.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Model)
	assert.InDelta(t, 0.2, cfg.Temperature, 0.0001)
	assert.Equal(t, 1, cfg.MaxToolCallsPerQuery)
	assert.Equal(t, 8192, cfg.MaxInlineResultSize)
	assert.Equal(t, "this is Ujjwal's weather agent :)", cfg.SignatureLine)
	assert.Equal(t, agent.RefreshPerQuery, cfg.CatalogRefresh)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "agent.yaml")
	err := os.WriteFile(file, []byte(`
model: gemini-2.5-pro
max_tool_calls_per_query: 3
catalog_refresh: per_session
`), 0o644)
	require.NoError(t, err)

	cfg, err := agent.LoadConfig(file)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, 3, cfg.MaxToolCallsPerQuery)
	assert.Equal(t, agent.RefreshPerSession, cfg.CatalogRefresh)
	// unset fields fall back to defaults
	assert.InDelta(t, 0.2, cfg.Temperature, 0.0001)
	assert.Equal(t, "this is Ujjwal's weather agent :)", cfg.SignatureLine)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := agent.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestWithDefaultsKeepsExplicit(t *testing.T) {
	cfg := (&agent.Config{
		Model:                "gemini-2.5-flash",
		Temperature:          0.7,
		MaxToolCallsPerQuery: 5,
		SignatureLine:        "custom",
		CatalogRefresh:       agent.RefreshPerSession,
	}).WithDefaults()

	assert.Equal(t, "gemini-2.5-flash", cfg.Model)
	assert.InDelta(t, 0.7, cfg.Temperature, 0.0001)
	assert.Equal(t, 5, cfg.MaxToolCallsPerQuery)
	assert.Equal(t, "custom", cfg.SignatureLine)
	assert.Equal(t, agent.RefreshPerSession, cfg.CatalogRefresh)
}
