package migrate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replaykit/internal/canon"
)

func buildArtifactBytes(t *testing.T, version string, payload canon.Object, metadata canon.Object) []byte {
	t.Helper()
	tree := canon.Object{
		"version":  canon.String(version),
		"metadata": metadata,
		"payload":  payload,
	}
	checksum, err := canon.Hash(tree)
	require.NoError(t, err)
	tree["checksum"] = canon.String(checksum)
	data, err := canon.MarshalCanonical(tree)
	require.NoError(t, err)
	return data
}

func TestBytes_AlreadyCurrentVersionIsNoop(t *testing.T) {
	step := canon.Object{
		"id": canon.String("step-000001"), "type": canon.String("model.call"),
		"input": canon.Object{}, "output": canon.Object{}, "metadata": canon.Object{},
		"hash": canon.String("sha256:" + fixedHex(t)),
	}
	run := canon.Object{
		"id": canon.String("run-1"), "timestamp": canon.String("2026-01-01T00:00:00Z"),
		"environment_fingerprint": canon.Object{}, "runtime_versions": canon.Object{},
		"steps": canon.Array{step},
	}
	payload := canon.Object{"run": run}
	metadata := canon.Object{"run_id": canon.String("run-1")}
	data := buildArtifactBytes(t, "1.0", payload, metadata)

	result, err := Bytes(data, filepath.Join(t.TempDir(), "out.rpk"))
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyCurrent, result.Status)
}

func TestBytes_MigratesLegacyFieldNames(t *testing.T) {
	step := canon.Object{
		"id": canon.String("step-1"), "type": canon.String("model.call"),
		"request": canon.Object{"prompt": canon.String("hi")},
		"response": canon.Object{"text": canon.String("hello")},
		"step_hash": canon.String("sha256:" + fixedHex(t)),
	}
	run := canon.Object{
		"id": canon.String("legacy-run"), "timestamp": canon.String("2025-01-01T00:00:00Z"),
		"env_fingerprint": canon.Object{"os": canon.String("linux")},
		"runtime":         canon.Object{"go": canon.String("1.20")},
		"steps":           canon.Array{step},
	}
	payload := canon.Object{"run": run}
	metadata := canon.Object{"run_id": canon.String("legacy-run")}
	data := buildArtifactBytes(t, LegacySourceVersion, payload, metadata)

	dest := filepath.Join(t.TempDir(), "out.rpk")
	result, err := Bytes(data, dest)
	require.NoError(t, err)
	assert.Equal(t, StatusMigrated, result.Status)
	assert.Equal(t, LegacySourceVersion, result.SourceVersion)
	assert.Equal(t, 1, result.TotalSteps)
	assert.FileExists(t, dest)
}

func TestBytes_RejectsChecksumMismatch(t *testing.T) {
	run := canon.Object{"id": canon.String("r"), "steps": canon.Array{}}
	payload := canon.Object{"run": run}
	metadata := canon.Object{"run_id": canon.String("r")}
	data := buildArtifactBytes(t, "1.0", payload, metadata)

	tampered := []byte(replaceOnce(t, string(data), `"r"`, `"tampered"`))

	_, err := Bytes(tampered, filepath.Join(t.TempDir(), "out.rpk"))
	require.Error(t, err)
	var mErr *Error
	require.ErrorAs(t, err, &mErr)
	assert.True(t, IsChecksumInvalid(err))
}

func TestBytes_RejectsUnsupportedVersion(t *testing.T) {
	run := canon.Object{"id": canon.String("r"), "steps": canon.Array{}}
	payload := canon.Object{"run": run}
	metadata := canon.Object{"run_id": canon.String("r")}
	data := buildArtifactBytes(t, "9.9", payload, metadata)

	_, err := Bytes(data, filepath.Join(t.TempDir(), "out.rpk"))
	require.Error(t, err)
	assert.True(t, IsUnsupportedVersion(err))
}

func fixedHex(t *testing.T) string {
	t.Helper()
	b := make([]byte, 64)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func replaceOnce(t *testing.T, s, old, new string) string {
	t.Helper()
	idx := indexOf(s, old)
	require.GreaterOrEqual(t, idx, 0)
	return s[:idx] + new + s[idx+len(old):]
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
