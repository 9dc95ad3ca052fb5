package replay

import (
	"fmt"

	"github.com/replaykit/replaykit/internal/artifact"
)

// HybridPolicy selects which steps of a stub replay get substituted with
// the corresponding step from a second, "fresh" run, keyed by step index.
type HybridPolicy struct {
	RerunStepTypes  []string
	RerunStepIDs    []string
	StrictAlignment bool
}

func (p HybridPolicy) shouldSubstitute(step artifact.Step) bool {
	for _, t := range p.RerunStepTypes {
		if string(step.Type) == t {
			return true
		}
	}
	for _, id := range p.RerunStepIDs {
		if step.ID == id {
			return true
		}
	}
	return false
}

// Hybrid replays source in stub mode, then substitutes the output of
// every step matched by policy with the step at the same index in
// substitute. Substitution is index-aligned: step i of source pairs with
// step i of substitute, regardless of step id. The nondeterminism guard
// findings from the underlying stub replay are carried through unchanged.
func Hybrid(source, substitute artifact.Run, cfg Config, policy HybridPolicy) (Result, error) {
	stubbed, err := Stub(source, cfg)
	if err != nil {
		return Result{}, err
	}

	if policy.StrictAlignment {
		for i := 0; i < len(source.Steps) && i < len(substitute.Steps); i++ {
			if source.Steps[i].Type != substitute.Steps[i].Type {
				return Result{}, &AlignmentError{
					Message: fmt.Sprintf("step %d: source type %q does not match substitute type %q", i, source.Steps[i].Type, substitute.Steps[i].Type),
				}
			}
		}
	}

	steps := make([]artifact.Step, len(stubbed.Run.Steps))
	for i, step := range stubbed.Run.Steps {
		if !policy.shouldSubstitute(source.Steps[i]) {
			steps[i] = step
			continue
		}
		if i >= len(substitute.Steps) {
			if policy.StrictAlignment {
				return Result{}, &AlignmentError{Message: fmt.Sprintf("substitute run has no step at index %d", i)}
			}
			steps[i] = step
			continue
		}
		repl := substitute.Steps[i]
		if policy.StrictAlignment && repl.Type != source.Steps[i].Type {
			return Result{}, &AlignmentError{
				Message: fmt.Sprintf("step %d: source type %q does not match substitute type %q", i, source.Steps[i].Type, repl.Type),
			}
		}
		merged := step
		merged.Output = repl.Output
		merged.Metadata = repl.Metadata
		hashed, err := merged.WithHash()
		if err != nil {
			return Result{}, fmt.Errorf("replay: rehash substituted step %d: %w", i, err)
		}
		steps[i] = hashed
	}

	if policy.StrictAlignment && len(substitute.Steps) != len(source.Steps) {
		return Result{}, &AlignmentError{
			Message: fmt.Sprintf("source has %d steps, substitute has %d", len(source.Steps), len(substitute.Steps)),
		}
	}

	stubbed.Run.Steps = steps
	stubbed.Run.EnvironmentFingerprint["replay_mode"] = "hybrid"
	return stubbed, nil
}
