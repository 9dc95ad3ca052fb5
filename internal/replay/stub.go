package replay

import (
	"fmt"
	"math/rand"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

// NondeterminismIndicatorKeys lists the step metadata keys the
// nondeterminism guard inspects. A truthy value under any of these keys
// on a source step means the step was produced by something the capture
// side couldn't fully pin down (an unseeded RNG, a wall-clock read, or a
// system entropy source), so replaying it verbatim can't be trusted to
// reproduce the original run.
var NondeterminismIndicatorKeys = []string{"unseeded", "wall_clock_read", "random_source"}

// NondeterminismFinding records one indicator key found truthy in a
// source step's metadata.
type NondeterminismFinding struct {
	StepID    string
	StepIndex int
	Indicator string
	Value     canon.Value
}

func (f NondeterminismFinding) String() string {
	return fmt.Sprintf("step %d (%s): %s indicator present", f.StepIndex, f.StepID, f.Indicator)
}

// Result is the outcome of a stub or hybrid replay: the replayed run,
// plus any nondeterminism findings accumulated in warn mode.
type Result struct {
	Run      artifact.Run
	Findings []NondeterminismFinding
}

// Stub re-executes source offline by re-emitting its recorded step
// outputs verbatim, with no side effects and no live network access.
// It re-stamps step ids sequentially and recomputes hashes so the
// resulting run is self-consistent, but leaves input/output content
// unchanged.
func Stub(source artifact.Run, cfg Config) (Result, error) {
	cfg, err := cfg.Normalize()
	if err != nil {
		return Result{}, err
	}

	var result Result
	err = WithNetworkGuard(func() error {
		restore := seedDeterministicRuntime(cfg.Seed)
		defer restore()

		steps, findings, guardErr := replaySteps(source.Steps, cfg)
		if guardErr != nil {
			return guardErr
		}

		replayID, idErr := deterministicReplayID(source, cfg)
		if idErr != nil {
			return idErr
		}

		timestamp := cfg.FixedClock
		if timestamp == "" {
			timestamp = source.Timestamp
		}

		envFP := cloneMap(source.EnvironmentFingerprint)
		envFP["replay_mode"] = "stub"
		envFP["replay_seed"] = fmt.Sprintf("%d", cfg.Seed)

		runtimeVersions := cloneMap(source.RuntimeVersions)
		runtimeVersions["replay_id"] = replayID

		result = Result{
			Run: artifact.Run{
				ID:                     replayID,
				Timestamp:              timestamp,
				EnvironmentFingerprint: envFP,
				RuntimeVersions:        runtimeVersions,
				Steps:                  steps,
			},
			Findings: findings,
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

// replaySteps re-stamps and rehashes every source step, running the
// nondeterminism guard over each one first. In "fail" mode the first
// finding aborts the whole replay; in "warn" mode findings are
// accumulated and returned alongside the replayed steps.
func replaySteps(source []artifact.Step, cfg Config) ([]artifact.Step, []NondeterminismFinding, error) {
	out := make([]artifact.Step, len(source))
	var findings []NondeterminismFinding
	for i, s := range source {
		if cfg.Nondeterminism != NondeterminismOff {
			for _, finding := range findNondeterminism(i, s) {
				if cfg.Nondeterminism == NondeterminismFail {
					return nil, nil, &Error{
						Code:    "NONDETERMINISM_DETECTED",
						Message: fmt.Sprintf("%s indicator present in step metadata", finding.Indicator),
						StepID:  s.ID,
					}
				}
				findings = append(findings, finding)
			}
		}

		s.ID = fmt.Sprintf("step-%06d", i+1)
		hashed, err := s.WithHash()
		if err != nil {
			return nil, nil, fmt.Errorf("replay: rehash step %d: %w", i, err)
		}
		out[i] = hashed
	}
	return out, findings, nil
}

// findNondeterminism scans step's metadata for NondeterminismIndicatorKeys
// and reports one finding per key present with a truthy value.
func findNondeterminism(index int, step artifact.Step) []NondeterminismFinding {
	obj, ok := step.Metadata.(canon.Object)
	if !ok {
		return nil
	}
	var findings []NondeterminismFinding
	for _, key := range NondeterminismIndicatorKeys {
		v, present := obj[key]
		if !present || !isTruthy(v) {
			continue
		}
		findings = append(findings, NondeterminismFinding{
			StepID:    step.ID,
			StepIndex: index,
			Indicator: key,
			Value:     v,
		})
	}
	return findings
}

func isTruthy(v canon.Value) bool {
	switch t := v.(type) {
	case canon.Bool:
		return bool(t)
	case canon.Null:
		return false
	case canon.String:
		return t != ""
	case canon.Int:
		return t != 0
	case canon.Float:
		return t != 0
	default:
		// Array/Object: presence of a non-scalar indicator value counts
		// as truthy -- there's no meaningful "empty" reading for it here.
		return true
	}
}

func deterministicReplayID(source artifact.Run, cfg Config) (string, error) {
	fingerprint, err := canon.Hash(canon.Object{
		"id":                      canon.String(source.ID),
		"environment_fingerprint": stringMapValue(source.EnvironmentFingerprint),
	})
	if err != nil {
		return "", err
	}
	idHash, err := canon.Hash(canon.Object{
		"source_fingerprint": canon.String(fingerprint),
		"seed":               canon.Int(cfg.Seed),
		"fixed_clock":        canon.String(cfg.FixedClock),
	})
	if err != nil {
		return "", err
	}
	// idHash is "sha256:<64 hex chars>"; keep it short and readable.
	return "replay-" + idHash[len(canon.HashPrefix):][:12], nil
}

func stringMapValue(m map[string]string) canon.Value {
	obj := make(canon.Object, len(m))
	for k, v := range m {
		obj[k] = canon.String(v)
	}
	return obj
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// seedDeterministicRuntime seeds the package-level math/rand source used
// by replay-aware code and returns a restore function that does nothing.
// Go's global rand source has no way to snapshot/restore its internal
// state, so it stays seeded with seed after replay returns -- callers
// that need bit-for-bit rand reproducibility across nested replays
// should use their own *rand.Rand seeded from cfg.Seed instead of the
// package-level source.
func seedDeterministicRuntime(seed int64) func() {
	rand.Seed(seed)
	return func() {}
}
