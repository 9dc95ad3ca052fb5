// Package assertrun layers pass/fail assertions on top of internal/diff:
// a candidate run passes only if it is diff-identical to a baseline,
// optionally subject to stricter environment-drift and slowdown checks.
package assertrun

import (
	"fmt"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
	"github.com/replaykit/replaykit/internal/diff"
)

// SlowdownFieldNames lists step metadata keys checked for slowdown
// beyond Options.SlowdownRatio.
var SlowdownFieldNames = []string{"duration_ms", "latency_ms", "wall_time_ms", "elapsed_ms"}

// Options configures Run.
type Options struct {
	MaxChangesPerStep int
	Strict            bool
	// SlowdownRatio, if > 0, fails the assertion when the mean of the
	// per-step candidate/baseline timing ratios exceeds this multiple.
	SlowdownRatio float64
}

// Result is the outcome of asserting a candidate run against a baseline.
type Result struct {
	Diff    diff.RunDiffResult
	Passed  bool
	Reasons []string
	// PerformanceStatus is set when the slowdown gate ran: "slowdown" if
	// the aggregate ratio exceeded Options.SlowdownRatio, "missing_metrics"
	// if the gate was requested but no comparable timing metadata was
	// present, or "" if the gate wasn't requested or passed clean.
	PerformanceStatus string
}

// ExitCode maps Result to a CLI exit code: 0 if passed, 1 otherwise.
func (r Result) ExitCode() int {
	if r.Passed {
		return 0
	}
	return 1
}

// Run compares candidate against baseline and reports whether it passes.
func Run(baseline, candidate artifact.Run, opts Options) Result {
	d := diff.Runs(baseline, candidate, diff.Options{MaxChangesPerStep: opts.MaxChangesPerStep, Strict: opts.Strict})
	result := Result{Diff: d, Passed: true}

	if !d.Identical() {
		result.Passed = false
		result.Reasons = append(result.Reasons, "candidate run diverges from baseline")
	}

	if opts.Strict {
		if reasons := strictDriftReasons(baseline, candidate); len(reasons) > 0 {
			result.Passed = false
			result.Reasons = append(result.Reasons, reasons...)
		}
	}

	if opts.SlowdownRatio > 0 {
		if status, reasons := performanceCheck(baseline, candidate, opts.SlowdownRatio); status != "" {
			result.Passed = false
			result.PerformanceStatus = status
			result.Reasons = append(result.Reasons, reasons...)
		}
	}

	return result
}

func strictDriftReasons(baseline, candidate artifact.Run) []string {
	var reasons []string
	for k, v := range baseline.EnvironmentFingerprint {
		if candidate.EnvironmentFingerprint[k] != v {
			reasons = append(reasons, fmt.Sprintf("environment_fingerprint[%s] drifted: %q -> %q", k, v, candidate.EnvironmentFingerprint[k]))
		}
	}
	for k, v := range baseline.RuntimeVersions {
		if candidate.RuntimeVersions[k] != v {
			reasons = append(reasons, fmt.Sprintf("runtime_versions[%s] drifted: %q -> %q", k, v, candidate.RuntimeVersions[k]))
		}
	}
	return reasons
}

// performanceCheck computes the candidate/baseline timing ratio for every
// step that carries comparable timing metadata, aggregates those per-step
// ratios into one figure (their mean), and compares it against ratio. If
// no aligned step carries any of SlowdownFieldNames on both sides with a
// positive baseline value, the gate can't be evaluated at all and
// reports "missing_metrics" rather than silently passing.
func performanceCheck(baseline, candidate artifact.Run, ratio float64) (string, []string) {
	n := len(baseline.Steps)
	if len(candidate.Steps) < n {
		n = len(candidate.Steps)
	}

	sawAnyMetric := false
	var stepRatios []float64
	for i := 0; i < n; i++ {
		var baseSum, candSum float64
		var found bool
		for _, field := range SlowdownFieldNames {
			bv, bok := metadataFloat(baseline.Steps[i], field)
			cv, cok := metadataFloat(candidate.Steps[i], field)
			if !bok || !cok {
				continue
			}
			sawAnyMetric = true
			if bv <= 0 {
				continue
			}
			found = true
			baseSum += bv
			candSum += cv
		}
		if found {
			stepRatios = append(stepRatios, candSum/baseSum)
		}
	}

	if !sawAnyMetric || len(stepRatios) == 0 {
		return "missing_metrics", []string{"slowdown gate requested but no comparable timing metadata found in baseline/candidate steps"}
	}

	var total float64
	for _, r := range stepRatios {
		total += r
	}
	aggregate := total / float64(len(stepRatios))
	if aggregate > ratio {
		return "slowdown", []string{fmt.Sprintf("aggregate timing ratio %.2fx exceeds threshold %.2fx across %d steps", aggregate, ratio, len(stepRatios))}
	}
	return "", nil
}

func metadataFloat(step artifact.Step, field string) (float64, bool) {
	obj, ok := step.Metadata.(canon.Object)
	if !ok {
		return 0, false
	}
	v, ok := obj[field]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case canon.Int:
		return float64(n), true
	case canon.Float:
		return float64(n), true
	default:
		return 0, false
	}
}
