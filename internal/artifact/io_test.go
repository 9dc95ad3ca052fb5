package artifact

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replaykit/internal/canon"
)

func sampleRun(t *testing.T) Run {
	t.Helper()
	step, err := Step{
		ID:     "step-000001",
		Type:   StepModelResponse,
		Input:  canon.Object{"prompt": canon.String("hi")},
		Output: canon.Object{"text": canon.String("hello")},
		Metadata: canon.Object{
			"model":       canon.String("gpt-test"),
			"duration_ms": canon.Int(42),
		},
	}.WithHash()
	require.NoError(t, err)
	return Run{
		ID:                     "run-1",
		Timestamp:              "2026-01-01T00:00:00Z",
		EnvironmentFingerprint: map[string]string{"os": "linux"},
		RuntimeVersions:        map[string]string{"go": "1.25"},
		Steps:                  []Step{step},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	run := sampleRun(t)
	env, err := BuildEnvelope(run, EnvelopeMetadata{RunID: run.ID, CreatedAt: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.rpk")
	require.NoError(t, Write(path, env))

	loaded, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, env.Checksum, loaded.Checksum)
	assert.Equal(t, run.ID, loaded.Payload.Run.ID)
	assert.Len(t, loaded.Payload.Run.Steps, 1)
	assert.Equal(t, run.Steps[0].Hash, loaded.Payload.Run.Steps[0].Hash)
}

func TestRead_DetectsChecksumTampering(t *testing.T) {
	run := sampleRun(t)
	env, err := BuildEnvelope(run, EnvelopeMetadata{RunID: run.ID, CreatedAt: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.rpk")
	require.NoError(t, Write(path, env))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := strings.Replace(string(data), `"prompt": "hi"`, `"prompt": "tampered"`, 1)
	require.NotEqual(t, string(data), tampered)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0o644))

	_, err = Read(path)
	require.Error(t, err)
	assert.True(t, IsChecksumError(err))
}

func TestValidate_RejectsUnsupportedMajorVersion(t *testing.T) {
	env := Envelope{Version: "2.0", Metadata: EnvelopeMetadata{RunID: "r"}, Checksum: "sha256:" + fixedHex()}
	env.Payload.Run.ID = "r"
	err := Validate(env)
	require.Error(t, err)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrCodeUnsupportedMajor, ie.Code)
}

func fixedHex() string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
