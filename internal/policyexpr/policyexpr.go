// Package policyexpr evaluates small boolean expressions used to extend
// static interception policy with per-deployment rules, without requiring
// a code change or rebuild for every new host/tool allow rule.
package policyexpr

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// EvalBool compiles and runs expression against env, requiring the
// result to be a bool. Expressions are re-compiled on every call since
// policy expressions change rarely and are evaluated far less often than
// captured steps are recorded elsewhere in the pipeline.
func EvalBool(expression string, env map[string]any) (bool, error) {
	program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("policyexpr: compile: %w", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("policyexpr: run: %w", err)
	}
	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("policyexpr: expression did not evaluate to a bool")
	}
	return result, nil
}
