// Package diffviz renders a diff result as a Graphviz DOT graph, useful
// for visually inspecting where two runs diverge in tooling that can
// render DOT (e.g. `dot -Tsvg`).
package diffviz

import (
	"fmt"

	"github.com/awalterschulze/gographviz"
	"github.com/replaykit/replaykit/internal/diff"
)

// Render builds a DOT graph with one node per step position, colored by
// diff status, and edges chaining steps in order.
func Render(result diff.RunDiffResult) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName("run_diff"); err != nil {
		return "", err
	}
	if err := g.SetDir(true); err != nil {
		return "", err
	}

	var prev string
	for _, sd := range result.StepDiffs {
		name := fmt.Sprintf("step_%d", sd.Index)
		label := fmt.Sprintf("\"%d: %s\"", sd.Index, sd.Status)
		attrs := map[string]string{
			"label":     label,
			"style":     "filled",
			"fillcolor": colorFor(sd.Status),
		}
		if err := g.AddNode("run_diff", name, attrs); err != nil {
			return "", err
		}
		if prev != "" {
			if err := g.AddEdge(prev, name, true, nil); err != nil {
				return "", err
			}
		}
		prev = name
	}

	return g.String(), nil
}

func colorFor(status diff.Status) string {
	switch status {
	case diff.StatusIdentical:
		return "\"#c8e6c9\""
	case diff.StatusChanged:
		return "\"#ffe082\""
	default:
		return "\"#ef9a9a\""
	}
}
