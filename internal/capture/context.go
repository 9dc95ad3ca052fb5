package capture

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
	"github.com/replaykit/replaykit/internal/redact"
)

type scopeKey struct{}

// Scope accumulates recorded steps for one run. All exported record
// functions operate on the scope found on a context.Context rather than
// a package-level global, so nested and concurrent captures never
// interfere with each other.
type Scope struct {
	mu              sync.Mutex
	runID           string
	timestamp       string
	envFingerprint  map[string]string
	runtimeVersions map[string]string
	policy          Policy
	redaction       redact.Policy
	steps           []artifact.Step
	counter         int
}

// Options configures a new capture Scope.
type Options struct {
	Policy    Policy
	Redaction redact.Policy
}

// Open creates a new capture scope and returns a context carrying it.
// Opening a scope on a context that already carries one shadows the
// outer scope for the lifetime of the returned context, mirroring the
// stack semantics of a nested `with capture_run():` block -- the caller
// is responsible for using the returned context only within the nested
// section.
func Open(ctx context.Context, opts Options) (context.Context, *Scope) {
	scope := &Scope{
		runID:           uuid.NewString(),
		timestamp:       time.Now().UTC().Format(time.RFC3339Nano),
		envFingerprint:  defaultEnvironmentFingerprint(),
		runtimeVersions: defaultRuntimeVersions(),
		policy:          opts.Policy,
		redaction:       opts.Redaction,
	}
	return context.WithValue(ctx, scopeKey{}, scope), scope
}

// FromContext retrieves the active capture scope, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*Scope)
	return scope, ok
}

// RunID returns the identifier assigned to this scope's run.
func (s *Scope) RunID() string {
	return s.runID
}

// ToRun snapshots the scope's accumulated steps into an artifact.Run.
func (s *Scope) ToRun() artifact.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := make([]artifact.Step, len(s.steps))
	copy(steps, s.steps)
	return artifact.Run{
		ID:                     s.runID,
		Timestamp:              s.timestamp,
		EnvironmentFingerprint: cloneStringMap(s.envFingerprint),
		RuntimeVersions:        cloneStringMap(s.runtimeVersions),
		Steps:                  steps,
	}
}

func (s *Scope) recordStep(stepType artifact.StepType, input, output, metadata canon.Value) (artifact.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	step := artifact.Step{
		ID:       fmt.Sprintf("step-%06d", s.counter),
		Type:     stepType,
		Input:    s.redaction.Value(input),
		Output:   s.redaction.Value(output),
		Metadata: s.redaction.Value(metadata),
	}
	hashed, err := step.WithHash()
	if err != nil {
		return artifact.Step{}, fmt.Errorf("capture: hash step: %w", err)
	}
	s.steps = append(s.steps, hashed)
	return hashed, nil
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func defaultEnvironmentFingerprint() map[string]string {
	hostname, _ := os.Hostname()
	return map[string]string{
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"hostname": hostname,
	}
}

func defaultRuntimeVersions() map[string]string {
	return map[string]string{
		"go": runtime.Version(),
	}
}
