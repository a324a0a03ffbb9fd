package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.Equal(t, 1, cfg.Parallelism)
}

func TestDefaultYAML_MatchesDefault(t *testing.T) {
	cfg, err := Parse([]byte(defaultConfigYAML))
	require.NoError(t, err)
	want := Default()
	want.Kinds = []string{}
	assert.Equal(t, want, cfg)
}

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
repository: /srv/declarations
root: /project
parallelism: 4
timeout: 10s
kinds: [extensionpoint, extension]
`))
	require.NoError(t, err)
	assert.Equal(t, "/srv/declarations", cfg.Repository)
	assert.Equal(t, "/project", cfg.Root)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"extensionpoint", "extension"}, cfg.Kinds)
	assert.Equal(t, "artisync.db", cfg.Database, "unset fields keep defaults")
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown field":    "colour: red\n",
		"bad duration":     "timeout: soon\n",
		"zero parallelism": "parallelism: 0\n",
		"relative root":    "root: project\n",
		"empty database":   "database: \"\"\n",
		"zero interval":    "interval: 0s\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(content))
			require.Error(t, err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ARTISYNC_DATABASE":    "/tmp/a.db",
		"ARTISYNC_PARALLELISM": "8",
		"ARTISYNC_INTERVAL":    "5m",
		"ARTISYNC_KINDS":       "job, schema,,",
		"ARTISYNC_CREATED_BY":  "ci",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, "/tmp/a.db", cfg.Database)
	assert.Equal(t, 8, cfg.Parallelism)
	assert.Equal(t, 5*time.Minute, cfg.Interval)
	assert.Equal(t, []string{"job", "schema"}, cfg.Kinds)
	assert.Equal(t, "ci", cfg.CreatedBy)
	assert.Equal(t, ".", cfg.Repository)
}

func TestApplyEnv_Invalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "ARTISYNC_TIMEOUT" {
			return "forever", true
		}
		return "", false
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARTISYNC_TIMEOUT")

	cfg = Default()
	err = cfg.ApplyEnv(func(k string) (string, bool) {
		if k == "ARTISYNC_PARALLELISM" {
			return "many", true
		}
		return "", false
	})
	require.Error(t, err)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: from-file.db\nlisten: :9090\n"), 0o644))
	t.Setenv("ARTISYNC_DATABASE", "from-env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database, "environment wins over the file")
	assert.Equal(t, ":9090", cfg.Listen)
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Database, cfg.Database)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, WriteDefault(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default().Listen, cfg.Listen)

	require.Error(t, WriteDefault(path), "existing files are not overwritten")
}
