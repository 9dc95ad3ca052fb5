package assertrun

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/replaykit/replaykit/internal/artifact"
)

// SlugifyName converts a human-provided snapshot name into a filesystem-
// safe slug: lowercase, non-alphanumeric runs collapsed to a single
// hyphen, leading/trailing hyphens trimmed.
func SlugifyName(name string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// SnapshotPath returns the on-disk path for a named snapshot under dir.
func SnapshotPath(dir, name string) string {
	return filepath.Join(dir, SlugifyName(name)+".rpk")
}

// Snapshot writes run to dir under name, for later comparison via
// AssertAgainstSnapshot.
func Snapshot(run artifact.Run, dir, name string) error {
	env, err := artifact.BuildEnvelope(run, artifact.EnvelopeMetadata{
		RunID:     run.ID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Extra:     map[string]string{"snapshot_name": name},
	})
	if err != nil {
		return fmt.Errorf("assertrun: build snapshot envelope: %w", err)
	}
	return artifact.Write(SnapshotPath(dir, name), env)
}

// AssertAgainstSnapshot loads the named snapshot from dir and asserts
// candidate against it. If the snapshot doesn't exist yet, it is created
// from candidate and the assertion passes trivially -- the same
// "record on first run" ergonomics as golden-file testing.
func AssertAgainstSnapshot(candidate artifact.Run, dir, name string, opts Options) (Result, error) {
	path := SnapshotPath(dir, name)
	env, err := artifact.Read(path)
	if err != nil {
		if isNotExist(err) {
			if writeErr := Snapshot(candidate, dir, name); writeErr != nil {
				return Result{}, writeErr
			}
			return Result{Passed: true}, nil
		}
		return Result{}, err
	}
	return Run(env.Payload.Run, candidate, opts), nil
}

func isNotExist(err error) bool {
	ie, ok := err.(*artifact.IntegrityError)
	return ok && ie.Code == artifact.ErrCodeIO
}
