package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
	"github.com/replaykit/replaykit/internal/plugin"
)

var contextFields = []string{"model", "provider", "tool", "method", "url", "temperature", "max_tokens"}

// Options controls how Runs computes a diff.
type Options struct {
	StopAtFirstDivergence bool
	MaxChangesPerStep     int
	// Strict includes non-semantic metadata keys (canon.VolatileFieldNames)
	// in field-level deltas. By default they're filtered out, since they're
	// also excluded from the step hash and so never affect a step's
	// changed/identical status -- surfacing them as deltas anyway would
	// just add noise to an already-detected divergence.
	Strict  bool
	Plugins *plugin.Manager
}

// Runs compares left and right step-by-step. Step positions beyond the
// shorter run are reported as missing_left/missing_right rather than
// compared.
func Runs(left, right artifact.Run, opts Options) RunDiffResult {
	if opts.Plugins != nil {
		opts.Plugins.OnDiffStart(plugin.DiffStartEvent{LeftRunID: left.ID, RightRunID: right.ID})
	}

	maxLen := len(left.Steps)
	if len(right.Steps) > maxLen {
		maxLen = len(right.Steps)
	}

	result := RunDiffResult{
		LeftRunID:       left.ID,
		RightRunID:      right.ID,
		TotalLeftSteps:  len(left.Steps),
		TotalRightSteps: len(right.Steps),
	}

	for i := 0; i < maxLen; i++ {
		sd := diffStep(i, left.Steps, right.Steps, opts.MaxChangesPerStep, opts.Strict)
		result.StepDiffs = append(result.StepDiffs, sd)
		if opts.StopAtFirstDivergence && sd.Status != StatusIdentical {
			break
		}
	}

	if opts.Plugins != nil {
		opts.Plugins.OnDiffEnd(plugin.DiffEndEvent{LeftRunID: left.ID, RightRunID: right.ID, Identical: result.Identical()})
	}
	return result
}

func diffStep(index int, leftSteps, rightSteps []artifact.Step, maxChanges int, strict bool) StepDiff {
	hasLeft := index < len(leftSteps)
	hasRight := index < len(rightSteps)

	switch {
	case hasLeft && !hasRight:
		return StepDiff{Index: index, Status: StatusMissingRight, LeftStepID: leftSteps[index].ID, LeftType: string(leftSteps[index].Type)}
	case !hasLeft && hasRight:
		return StepDiff{Index: index, Status: StatusMissingLeft, RightStepID: rightSteps[index].ID, RightType: string(rightSteps[index].Type)}
	}

	l, r := leftSteps[index], rightSteps[index]
	sd := StepDiff{
		Index:       index,
		LeftStepID:  l.ID,
		RightStepID: r.ID,
		LeftType:    string(l.Type),
		RightType:   string(r.Type),
	}

	if stepsEquivalent(l, r) {
		sd.Status = StatusIdentical
		return sd
	}

	sd.Status = StatusChanged
	sd.Context = extractContext(l, r)
	changes, truncated := collectValueChanges("", canon.Object{"input": orNull(l.Input), "output": orNull(l.Output), "metadata": filterVolatileMetadata(orNull(l.Metadata), strict)},
		canon.Object{"input": orNull(r.Input), "output": orNull(r.Output), "metadata": filterVolatileMetadata(orNull(r.Metadata), strict)}, maxChanges)
	sd.Changes = changes
	sd.TruncatedChanges = truncated
	return sd
}

func orNull(v canon.Value) canon.Value {
	if v == nil {
		return canon.Null{}
	}
	return v
}

// filterVolatileMetadata drops canon.VolatileFieldNames keys from a
// metadata object before it's walked for field-level deltas, unless
// strict is requested. Non-object values (Null, etc.) pass through
// unchanged.
func filterVolatileMetadata(v canon.Value, strict bool) canon.Value {
	if strict {
		return v
	}
	obj, ok := v.(canon.Object)
	if !ok {
		return v
	}
	out := make(canon.Object, len(obj))
	for k, val := range obj {
		if canon.VolatileFieldNames[k] {
			continue
		}
		out[k] = val
	}
	return out
}

// stepsEquivalent reports whether two steps are considered the same for
// diff purposes: same type and same content hash.
func stepsEquivalent(l, r artifact.Step) bool {
	return l.Type == r.Type && l.Hash == r.Hash
}

func extractContext(l, r artifact.Step) map[string]ContextPair {
	out := map[string]ContextPair{}
	for _, field := range contextFields {
		lv := lookupContextField(l, field)
		rv := lookupContextField(r, field)
		if !valuesEqual(lv, rv) {
			out[field] = ContextPair{Left: lv, Right: rv}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// lookupContextField reads field from metadata, then input, then output,
// in that priority order, returning the first source that defines it.
func lookupContextField(s artifact.Step, field string) canon.Value {
	for _, source := range []canon.Value{s.Metadata, s.Input, s.Output} {
		if obj, ok := source.(canon.Object); ok {
			if v, ok := obj[field]; ok {
				return v
			}
		}
	}
	return nil
}

func valuesEqual(a, b canon.Value) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	ca, errA := canon.MarshalCanonical(a)
	cb, errB := canon.MarshalCanonical(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ca) == string(cb)
}

// missingSentinel marks a key present on one side of a comparison but
// absent on the other. It is not a canon.Value -- the recursion below
// carries it as `any` alongside real canon.Value instances.
type missingSentinel struct{}

var missing any = missingSentinel{}

func collectValueChanges(pathPrefix string, left, right canon.Value, maxChanges int) ([]ValueChange, bool) {
	var changes []ValueChange
	truncated := false
	collect(pathPrefix, left, right, maxChanges, &changes, &truncated)
	return changes, truncated
}

func collect(path string, left, right any, maxChanges int, out *[]ValueChange, truncated *bool) {
	if maxChanges > 0 && len(*out) >= maxChanges {
		*truncated = true
		return
	}
	if valuesEqual(normalizeMissing(left), normalizeMissing(right)) {
		return
	}
	lo, lok := left.(canon.Object)
	ro, rok := right.(canon.Object)
	if lok && rok {
		keys := unionKeys(lo, ro)
		for _, k := range keys {
			lv, hasL := lo[k]
			rv, hasR := ro[k]
			childPath := path + "/" + escapeJSONPointer(k)
			if !hasL {
				collect(childPath, missing, rv, maxChanges, out, truncated)
				continue
			}
			if !hasR {
				collect(childPath, lv, missing, maxChanges, out, truncated)
				continue
			}
			collect(childPath, lv, rv, maxChanges, out, truncated)
		}
		return
	}
	la, lok := left.(canon.Array)
	ra, rok := right.(canon.Array)
	if lok && rok {
		n := len(la)
		if len(ra) > n {
			n = len(ra)
		}
		for i := 0; i < n; i++ {
			childPath := fmt.Sprintf("%s/%d", path, i)
			var lv, rv any = missing, missing
			if i < len(la) {
				lv = la[i]
			}
			if i < len(ra) {
				rv = ra[i]
			}
			collect(childPath, lv, rv, maxChanges, out, truncated)
		}
		return
	}
	if maxChanges > 0 && len(*out) >= maxChanges {
		*truncated = true
		return
	}
	*out = append(*out, ValueChange{
		Path:  pathOrRoot(path),
		Kind:  changeKind(left, right),
		Left:  stripMissing(left),
		Right: stripMissing(right),
	})
}

// changeKind classifies a leaf-level change from the presence/absence of
// each side: a missing left means the field was added, a missing right
// means it was removed, and both present but unequal means it was
// replaced.
func changeKind(left, right any) ChangeKind {
	_, leftMissing := left.(missingSentinel)
	_, rightMissing := right.(missingSentinel)
	switch {
	case leftMissing:
		return ChangeAdded
	case rightMissing:
		return ChangeRemoved
	default:
		return ChangeReplaced
	}
}

func normalizeMissing(v any) canon.Value {
	if _, ok := v.(missingSentinel); ok {
		return nil
	}
	return v.(canon.Value)
}

func stripMissing(v any) canon.Value {
	if _, ok := v.(missingSentinel); ok {
		return nil
	}
	return v.(canon.Value)
}

func pathOrRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

func unionKeys(a, b canon.Object) []string {
	seen := map[string]bool{}
	var keys []string
	for k := range a {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range b {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func escapeJSONPointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	s = strings.ReplaceAll(s, "/", "~1")
	return s
}
