package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	_, err := execRoot(t, "--format", "xml", "diff", "a.rpk", "b.rpk")
	require.Error(t, err)
}

func TestRecordAndDiff_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.rpk")

	_, err := execRoot(t, "record", "-o", runPath, "--", "echo", "hello")
	require.NoError(t, err)
	assert.FileExists(t, runPath)

	out, err := execRoot(t, "--format", "json", "diff", runPath, runPath)
	require.NoError(t, err)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestReplayCommand_StubMode(t *testing.T) {
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.rpk")
	replayPath := filepath.Join(dir, "replay.rpk")

	_, err := execRoot(t, "record", "-o", runPath, "--", "echo", "hi")
	require.NoError(t, err)

	_, err = execRoot(t, "replay", runPath, "-o", replayPath, "--seed", "5")
	require.NoError(t, err)
	assert.FileExists(t, replayPath)
}

func TestAssertRunCommand_PassesAgainstItself(t *testing.T) {
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.rpk")

	_, err := execRoot(t, "record", "-o", runPath, "--", "echo", "hi")
	require.NoError(t, err)

	_, err = execRoot(t, "assert-run", runPath, runPath)
	require.NoError(t, err)
}

func TestMigrateCommand_AlreadyCurrentVersion(t *testing.T) {
	dir := t.TempDir()
	runPath := filepath.Join(dir, "run.rpk")
	destPath := filepath.Join(dir, "migrated.rpk")

	_, err := execRoot(t, "record", "-o", runPath, "--", "echo", "hi")
	require.NoError(t, err)

	out, err := execRoot(t, "--format", "json", "migrate", runPath, "-o", destPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already_current")
}
