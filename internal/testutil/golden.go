package testutil

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

// AssertRunGolden compares run's canonical JSON encoding against a golden
// file at testdata/golden/<name>.golden, so scenario tests can assert an
// entire captured run's shape without hand-writing field-by-field
// assertions.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertRunGolden(t *testing.T, name string, run artifact.Run) {
	t.Helper()

	tree := canon.Object{
		"id":                      canon.String(run.ID),
		"environment_fingerprint": stringMapToValue(run.EnvironmentFingerprint),
		"runtime_versions":        stringMapToValue(run.RuntimeVersions),
		"steps":                   stepsToValue(run.Steps),
	}
	data, err := canon.MarshalIndent(tree)
	if err != nil {
		t.Fatalf("marshal run for golden comparison: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
}

func stringMapToValue(m map[string]string) canon.Value {
	obj := make(canon.Object, len(m))
	for k, v := range m {
		obj[k] = canon.String(v)
	}
	return obj
}

func stepsToValue(steps []artifact.Step) canon.Value {
	arr := make(canon.Array, len(steps))
	for i, s := range steps {
		arr[i] = canon.Object{
			"type":   canon.String(string(s.Type)),
			"input":  orNull(s.Input),
			"output": orNull(s.Output),
			"hash":   canon.String(s.Hash),
		}
	}
	return arr
}

func orNull(v canon.Value) canon.Value {
	if v == nil {
		return canon.Null{}
	}
	return v
}
