package diff

import (
	"fmt"
	"strings"
)

// RenderSummary renders a one-paragraph human-readable summary of a diff
// result, for text-mode CLI output.
func RenderSummary(r RunDiffResult) string {
	if r.Identical() {
		return fmt.Sprintf("runs %s and %s are identical (%d steps)", r.LeftRunID, r.RightRunID, r.TotalLeftSteps)
	}
	summary := r.Summary()
	var parts []string
	for _, status := range []Status{StatusChanged, StatusMissingLeft, StatusMissingRight} {
		if n := summary[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	return fmt.Sprintf("runs %s and %s differ: %s", r.LeftRunID, r.RightRunID, strings.Join(parts, ", "))
}

// RenderFirstDivergence renders a human-readable description of the
// first point where the two runs diverge, or a confirmation that they
// don't.
func RenderFirstDivergence(r RunDiffResult) string {
	fd := r.FirstDivergence()
	if fd == nil {
		return "no divergence found"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "first divergence at step %d (%s)\n", fd.Index, fd.Status)
	if fd.LeftStepID != "" || fd.RightStepID != "" {
		fmt.Fprintf(&b, "  left:  %s (%s)\n", fd.LeftStepID, fd.LeftType)
		fmt.Fprintf(&b, "  right: %s (%s)\n", fd.RightStepID, fd.RightType)
	}
	for _, c := range fd.Changes {
		switch c.Kind {
		case ChangeAdded:
			fmt.Fprintf(&b, "  %s: + %v\n", c.Path, c.Right)
		case ChangeRemoved:
			fmt.Fprintf(&b, "  %s: - %v\n", c.Path, c.Left)
		default:
			fmt.Fprintf(&b, "  %s: %v -> %v\n", c.Path, c.Left, c.Right)
		}
	}
	return b.String()
}
