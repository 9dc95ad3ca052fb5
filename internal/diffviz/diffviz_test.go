package diffviz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replaykit/internal/diff"
)

func TestRender_ProducesNodePerStep(t *testing.T) {
	result := diff.RunDiffResult{
		StepDiffs: []diff.StepDiff{
			{Index: 0, Status: diff.StatusIdentical},
			{Index: 1, Status: diff.StatusChanged},
		},
	}
	dot, err := Render(result)
	require.NoError(t, err)
	assert.Contains(t, dot, "step_0")
	assert.Contains(t, dot, "step_1")
	assert.Contains(t, dot, "digraph")
}

func TestRender_EmptyDiffProducesValidGraph(t *testing.T) {
	dot, err := Render(diff.RunDiffResult{})
	require.NoError(t, err)
	assert.Contains(t, dot, "run_diff")
}
