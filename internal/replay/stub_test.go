package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

func sourceRun(t *testing.T) artifact.Run {
	t.Helper()
	step, err := artifact.Step{
		ID:     "step-000001",
		Type:   artifact.StepModelResponse,
		Input:  canon.Object{"prompt": canon.String("hi")},
		Output: canon.Object{"text": canon.String("hello")},
	}.WithHash()
	require.NoError(t, err)
	return artifact.Run{
		ID:                     "run-1",
		Timestamp:              "2026-01-01T00:00:00Z",
		EnvironmentFingerprint: map[string]string{"os": "linux"},
		RuntimeVersions:        map[string]string{"go": "1.25"},
		Steps:                  []artifact.Step{step},
	}
}

func TestStub_PreservesOutputsAndRehashes(t *testing.T) {
	source := sourceRun(t)
	replayed, err := Stub(source, Config{Seed: 1})
	require.NoError(t, err)

	require.Len(t, replayed.Run.Steps, 1)
	assert.Equal(t, source.Steps[0].Output, replayed.Run.Steps[0].Output)
	assert.Equal(t, source.Steps[0].Hash, replayed.Run.Steps[0].Hash)
	assert.Equal(t, "stub", replayed.Run.EnvironmentFingerprint["replay_mode"])
	assert.NotEqual(t, source.ID, replayed.Run.ID)
	assert.Empty(t, replayed.Findings)
}

func TestStub_DeterministicReplayID(t *testing.T) {
	source := sourceRun(t)
	r1, err := Stub(source, Config{Seed: 42})
	require.NoError(t, err)
	r2, err := Stub(source, Config{Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, r1.Run.ID, r2.Run.ID)

	r3, err := Stub(source, Config{Seed: 7})
	require.NoError(t, err)
	assert.NotEqual(t, r1.Run.ID, r3.Run.ID)
}

func TestStub_InstallsAndTearsDownNetworkGuard(t *testing.T) {
	require.False(t, NetworkGuardActive())
	source := sourceRun(t)
	_, err := Stub(source, Config{})
	require.NoError(t, err)
	assert.False(t, NetworkGuardActive())
}

func TestStub_RejectsInvalidFixedClock(t *testing.T) {
	source := sourceRun(t)
	_, err := Stub(source, Config{FixedClock: "not-a-timestamp"})
	require.Error(t, err)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestStub_WarnModeAccumulatesNondeterminismFindings(t *testing.T) {
	source := sourceRun(t)
	source.Steps[0].Metadata = canon.Object{"unseeded": canon.Bool(true)}
	hashed, err := source.Steps[0].WithHash()
	require.NoError(t, err)
	source.Steps[0] = hashed

	result, err := Stub(source, Config{Nondeterminism: NondeterminismWarn})
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "unseeded", result.Findings[0].Indicator)
	assert.Equal(t, 0, result.Findings[0].StepIndex)
}

func TestStub_FailModeAbortsOnFirstFinding(t *testing.T) {
	source := sourceRun(t)
	source.Steps[0].Metadata = canon.Object{"wall_clock_read": canon.Bool(true)}
	hashed, err := source.Steps[0].WithHash()
	require.NoError(t, err)
	source.Steps[0] = hashed

	_, err = Stub(source, Config{Nondeterminism: NondeterminismFail})
	require.Error(t, err)
	assert.True(t, IsNondeterminismDetected(err))
}

func TestStub_OffModeIgnoresIndicators(t *testing.T) {
	source := sourceRun(t)
	source.Steps[0].Metadata = canon.Object{"random_source": canon.Bool(true)}
	hashed, err := source.Steps[0].WithHash()
	require.NoError(t, err)
	source.Steps[0] = hashed

	result, err := Stub(source, Config{Nondeterminism: NondeterminismOff})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestHybrid_SubstitutesMatchedStepTypes(t *testing.T) {
	source := sourceRun(t)
	substitute := sourceRun(t)
	substitute.Steps[0].Output = canon.Object{"text": canon.String("substituted")}

	merged, err := Hybrid(source, substitute, Config{}, HybridPolicy{RerunStepTypes: []string{string(artifact.StepModelResponse)}})
	require.NoError(t, err)
	assert.Equal(t, canon.Object{"text": canon.String("substituted")}, merged.Run.Steps[0].Output)
	assert.Equal(t, "hybrid", merged.Run.EnvironmentFingerprint["replay_mode"])
}

func TestHybrid_StrictAlignmentRejectsStepCountMismatch(t *testing.T) {
	source := sourceRun(t)
	substitute := sourceRun(t)
	substitute.Steps = append(substitute.Steps, substitute.Steps[0])

	_, err := Hybrid(source, substitute, Config{}, HybridPolicy{StrictAlignment: true})
	require.Error(t, err)
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)
}

func TestHybrid_LeavesUnmatchedStepsFromStub(t *testing.T) {
	source := sourceRun(t)
	substitute := sourceRun(t)
	substitute.Steps[0].Output = canon.Object{"text": canon.String("substituted")}

	merged, err := Hybrid(source, substitute, Config{}, HybridPolicy{})
	require.NoError(t, err)
	assert.Equal(t, source.Steps[0].Output, merged.Run.Steps[0].Output)
}
