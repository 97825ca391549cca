package cmd

import (
	"os"
	"path/filepath"
	"testing"

	internalApp "github.com/haierkeys/doc-history-service/internal/app"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPathWritesDefault(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	prev := configDefault
	configDefault = "server:\n  http-port: :9100\n"
	defer func() { configDefault = prev }()

	path, err := resolveConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, "config/config.yaml", path)

	cfg, _, err := internalApp.LoadConfig(filepath.Join(dir, path))
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.HttpPort)
	assert.Equal(t, "sqlite", cfg.Database.Type)

	require.NoError(t, os.WriteFile("config.yaml", []byte("{}"), 0644))
	path, err = resolveConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", path)

	path, err = resolveConfigPath("custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "custom.yaml", path)
}

func TestNormalizePort(t *testing.T) {
	assert.Equal(t, ":9000", normalizePort("9000"))
	assert.Equal(t, "127.0.0.1:9000", normalizePort("127.0.0.1:9000"))
}
