package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/artisync/internal/config"
)

func TestInit_WritesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artisync.yaml")

	out, err := execute(t, "init", path)
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestInit_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artisync.yaml")

	out, err := execute(t, "--format", "json", "init", path)
	require.NoError(t, err)

	var data map[string]string
	resp := CLIResponse{Data: &data}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, path, data["config"])
}

func TestInit_NeverOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artisync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repository: ./mine\n"), 0o644))

	_, err := execute(t, "init", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "repository: ./mine\n", string(data))
}
