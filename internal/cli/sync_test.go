package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/artisync/internal/synchronizer"
)

var extensionRepo = map[string]string{
	"a.extensionpoint": `{"name": "a"}`,
	"b.extension":      `{"extensionPoint": "a", "module": "b"}`,
	"app.roles":        `[{"name": "admin"}]`,
}

func decodeSync(t *testing.T, out string) (CLIResponse, SyncResult) {
	t.Helper()
	var result SyncResult
	resp := CLIResponse{Data: &result}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp, result
}

func TestSync_Text(t *testing.T) {
	env := newTestEnv(t, extensionRepo)

	out, err := env.execute(t, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "3 succeeded, 0 failed, 0 stalled, 0 removed, 0 error(s)")
	assert.Contains(t, out, "  SUCCEEDED   extension       /b.extension\n")
	assert.Contains(t, out, "  SUCCEEDED   extensionpoint  /a.extensionpoint\n")
	assert.NotContains(t, out, "errors:")
}

func TestSync_JSON(t *testing.T) {
	env := newTestEnv(t, extensionRepo)

	out, err := env.execute(t, "--format", "json", "sync")
	require.NoError(t, err)

	resp, result := decodeSync(t, out)
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, result.Report)
	assert.Equal(t, result.Report.RunID, resp.RunID)
	assert.Equal(t, 3, result.Summary.Succeeded)
	assert.Empty(t, result.Report.Errors)
	assert.Len(t, result.Report.States, 3)
}

func TestSync_ErrorsExitFailure(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		"a.extensionpoint": `{"name": `,
		"b.extension":      `{"extensionPoint": "/a.extensionpoint", "module": "b"}`,
	})

	out, err := env.execute(t, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "recorded 2 error(s)")

	assert.Contains(t, out, "0 succeeded, 1 failed, 1 stalled, 0 removed, 2 error(s)")
	assert.Contains(t, out, "errors:\n")
	assert.Contains(t, out, "MALFORMED_ARTIFACT: extensionpoint /a.extensionpoint")
	assert.Contains(t, out, "DEPENDENCY_STALL: extension CREATED flow stalled on 1 artifact(s): /b.extension")
}

func TestSync_IdempotentAndCleanup(t *testing.T) {
	env := newTestEnv(t, extensionRepo)

	_, err := env.execute(t, "sync")
	require.NoError(t, err)

	out, err := env.execute(t, "--format", "json", "sync")
	require.NoError(t, err)
	_, second := decodeSync(t, out)
	assert.Equal(t, 3, second.Summary.Succeeded)
	assert.Zero(t, second.Summary.Removed)

	env.remove(t, "a.extensionpoint")
	out, err = env.execute(t, "--format", "json", "sync")
	require.NoError(t, err)
	_, third := decodeSync(t, out)
	assert.Equal(t, 1, third.Summary.Removed)
	assert.Equal(t, 2, third.Summary.Succeeded)

	var removed []synchronizer.State
	for _, st := range third.Report.States {
		if st.Lifecycle == "REMOVED" {
			removed = append(removed, st)
		}
	}
	require.Len(t, removed, 1)
	assert.Equal(t, "/a.extensionpoint", removed[0].Location)
}

func TestSync_MissingRepository(t *testing.T) {
	env := newTestEnv(t, nil)
	env.repo = env.repo + "/missing"

	_, err := env.execute(t, "sync")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to open repository")
}
