// Package diff computes a step-by-step comparison between two captured
// runs, locating the first point of divergence and collecting
// field-level changes for every differing step.
package diff

import "github.com/replaykit/replaykit/internal/canon"

// Status classifies how a single step position compares between the two
// runs being diffed.
type Status string

const (
	StatusIdentical    Status = "identical"
	StatusChanged      Status = "changed"
	StatusMissingLeft  Status = "missing_left"
	StatusMissingRight Status = "missing_right"
)

// ChangeKind classifies a ValueChange by whether the field appeared,
// disappeared, or changed value between the two sides.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeReplaced ChangeKind = "replaced"
)

// ValueChange is one field-level difference, addressed by JSON pointer.
type ValueChange struct {
	Path  string      `json:"path"`
	Kind  ChangeKind  `json:"kind"`
	Left  canon.Value `json:"left,omitempty"`
	Right canon.Value `json:"right,omitempty"`
}

// ContextPair holds a value that differs between the two sides of a
// diffed step, for fields extracted for human-readable context.
type ContextPair struct {
	Left  canon.Value `json:"left"`
	Right canon.Value `json:"right"`
}

// StepDiff is the comparison result for one step index.
type StepDiff struct {
	Index            int                    `json:"index"`
	Status           Status                 `json:"status"`
	LeftStepID       string                 `json:"left_step_id,omitempty"`
	RightStepID      string                 `json:"right_step_id,omitempty"`
	LeftType         string                 `json:"left_type,omitempty"`
	RightType        string                 `json:"right_type,omitempty"`
	Context          map[string]ContextPair `json:"context,omitempty"`
	Changes          []ValueChange          `json:"changes,omitempty"`
	TruncatedChanges bool                   `json:"truncated_changes,omitempty"`
}

// RunDiffResult is the full comparison of two runs.
type RunDiffResult struct {
	LeftRunID       string     `json:"left_run_id"`
	RightRunID      string     `json:"right_run_id"`
	TotalLeftSteps  int        `json:"total_left_steps"`
	TotalRightSteps int        `json:"total_right_steps"`
	StepDiffs       []StepDiff `json:"step_diffs"`
}

// Identical reports whether every compared step position matched.
func (r RunDiffResult) Identical() bool {
	for _, sd := range r.StepDiffs {
		if sd.Status != StatusIdentical {
			return false
		}
	}
	return r.TotalLeftSteps == r.TotalRightSteps
}

// FirstDivergence returns the first non-identical step, or nil if the
// runs are identical (within what was compared).
func (r RunDiffResult) FirstDivergence() *StepDiff {
	for i := range r.StepDiffs {
		if r.StepDiffs[i].Status != StatusIdentical {
			return &r.StepDiffs[i]
		}
	}
	return nil
}

// Summary counts step diffs by status.
func (r RunDiffResult) Summary() map[Status]int {
	out := map[Status]int{}
	for _, sd := range r.StepDiffs {
		out[sd.Status]++
	}
	return out
}
