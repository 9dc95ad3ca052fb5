package assertrun

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

func baselineRun(t *testing.T) artifact.Run {
	t.Helper()
	step, err := artifact.Step{
		ID:     "step-000001",
		Type:   artifact.StepModelResponse,
		Input:  canon.Object{"prompt": canon.String("hi")},
		Output: canon.Object{"text": canon.String("hello")},
		Metadata: canon.Object{
			"duration_ms": canon.Int(100),
		},
	}.WithHash()
	require.NoError(t, err)
	return artifact.Run{
		ID:                     "run-1",
		EnvironmentFingerprint: map[string]string{"os": "linux"},
		RuntimeVersions:        map[string]string{"go": "1.25"},
		Steps:                  []artifact.Step{step},
	}
}

func TestRun_PassesWhenIdentical(t *testing.T) {
	baseline := baselineRun(t)
	candidate := baselineRun(t)
	result := Run(baseline, candidate, Options{})
	assert.True(t, result.Passed)
	assert.Equal(t, 0, result.ExitCode())
}

func TestRun_FailsOnDivergence(t *testing.T) {
	baseline := baselineRun(t)
	candidate := baselineRun(t)
	candidate.Steps[0].Output = canon.Object{"text": canon.String("different")}
	hashed, err := candidate.Steps[0].WithHash()
	require.NoError(t, err)
	candidate.Steps[0] = hashed

	result := Run(baseline, candidate, Options{})
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.ExitCode())
	assert.NotEmpty(t, result.Reasons)
}

func TestRun_StrictFlagsEnvironmentDrift(t *testing.T) {
	baseline := baselineRun(t)
	candidate := baselineRun(t)
	candidate.EnvironmentFingerprint = map[string]string{"os": "darwin"}

	result := Run(baseline, candidate, Options{Strict: true})
	assert.False(t, result.Passed)
	assert.Contains(t, result.Reasons[len(result.Reasons)-1], "environment_fingerprint[os]")
}

func TestRun_SlowdownRatioFlagsRegression(t *testing.T) {
	baseline := baselineRun(t)
	candidate := baselineRun(t)
	candidate.Steps[0].Metadata = canon.Object{"duration_ms": canon.Int(500)}
	hashed, err := candidate.Steps[0].WithHash()
	require.NoError(t, err)
	candidate.Steps[0] = hashed

	result := Run(baseline, candidate, Options{SlowdownRatio: 2.0})
	assert.False(t, result.Passed)
	assert.Equal(t, "slowdown", result.PerformanceStatus)
}

func TestRun_SlowdownGateWithoutMetricsFailsAsMissingMetrics(t *testing.T) {
	baseline := baselineRun(t)
	baseline.Steps[0].Metadata = canon.Object{}
	hashedBaseline, err := baseline.Steps[0].WithHash()
	require.NoError(t, err)
	baseline.Steps[0] = hashedBaseline

	candidate := baselineRun(t)
	candidate.Steps[0].Metadata = canon.Object{}
	hashedCandidate, err := candidate.Steps[0].WithHash()
	require.NoError(t, err)
	candidate.Steps[0] = hashedCandidate

	result := Run(baseline, candidate, Options{SlowdownRatio: 2.0})
	assert.False(t, result.Passed)
	assert.Equal(t, "missing_metrics", result.PerformanceStatus)
}

func TestSlugifyName(t *testing.T) {
	assert.Equal(t, "my-test-run", SlugifyName("My Test Run!!"))
	assert.Equal(t, "already-slug", SlugifyName("already-slug"))
}

func TestAssertAgainstSnapshot_RecordsOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	candidate := baselineRun(t)

	result, err := AssertAgainstSnapshot(candidate, dir, "my snapshot", Options{})
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.FileExists(t, filepath.Join(dir, "my-snapshot.rpk"))
}

func TestAssertAgainstSnapshot_ComparesOnSubsequentRun(t *testing.T) {
	dir := t.TempDir()
	baseline := baselineRun(t)
	require.NoError(t, Snapshot(baseline, dir, "run"))

	candidate := baselineRun(t)
	candidate.Steps[0].Output = canon.Object{"text": canon.String("changed")}
	hashed, err := candidate.Steps[0].WithHash()
	require.NoError(t, err)
	candidate.Steps[0] = hashed

	result, err := AssertAgainstSnapshot(candidate, dir, "run", Options{})
	require.NoError(t, err)
	assert.False(t, result.Passed)
}
