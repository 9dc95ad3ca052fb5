package policyexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalBool_TrueExpression(t *testing.T) {
	ok, err := EvalBool(`target == "api.example.com"`, map[string]any{"target": "api.example.com"})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalBool_FalseExpression(t *testing.T) {
	ok, err := EvalBool(`boundary == "http"`, map[string]any{"boundary": "model"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvalBool_RejectsNonBoolResult(t *testing.T) {
	_, err := EvalBool(`1 + 1`, map[string]any{})
	require.Error(t, err)
}

func TestEvalBool_RejectsInvalidExpression(t *testing.T) {
	_, err := EvalBool(`this is not valid`, map[string]any{})
	require.Error(t, err)
}
