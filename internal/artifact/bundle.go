package artifact

import (
	"bytes"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/replaykit/replaykit/internal/canon"
	"github.com/replaykit/replaykit/internal/redact"
)

// RedactionProfile names a named redaction behavior for Bundle, mirroring
// the CLI-facing `--redaction` flag.
type RedactionProfile string

const (
	RedactionDefault RedactionProfile = "default"
	RedactionNone    RedactionProfile = "none"
	RedactionCustom  RedactionProfile = "custom"
)

// BundleOptions configures Bundle.
type BundleOptions struct {
	Profile       RedactionProfile
	CustomPolicy  redact.Policy // used when Profile == RedactionCustom
	Sign          bool
	SigningKey    []byte
	SigningKeyID  string
	Compress      bool // write an additional .rpk.zst sidecar
}

func resolvePolicy(opts BundleOptions) redact.Policy {
	switch opts.Profile {
	case RedactionNone:
		return redact.None()
	case RedactionCustom:
		return opts.CustomPolicy
	default:
		return redact.Default()
	}
}

// redactRun returns a copy of run with every step's input/output/metadata
// and the run's environment fingerprint passed through policy, with step
// hashes recomputed to reflect the redacted content.
func redactRun(run Run, policy redact.Policy) (Run, error) {
	out := run
	out.EnvironmentFingerprint = redactStringMap(run.EnvironmentFingerprint, policy)
	steps := make([]Step, len(run.Steps))
	for i, s := range run.Steps {
		s.Input = policy.Value(s.Input)
		s.Output = policy.Value(s.Output)
		s.Metadata = policy.Value(s.Metadata)
		hashed, err := s.WithHash()
		if err != nil {
			return Run{}, fmt.Errorf("artifact: rehash redacted step %d: %w", i, err)
		}
		steps[i] = hashed
	}
	out.Steps = steps
	return out, nil
}

func redactStringMap(m map[string]string, policy redact.Policy) map[string]string {
	if len(m) == 0 {
		return m
	}
	tree := canon.Object{}
	for k, v := range m {
		tree[k] = canon.String(v)
	}
	redacted := policy.Value(tree).(canon.Object)
	out := make(map[string]string, len(redacted))
	for k, v := range redacted {
		if s, ok := v.(canon.String); ok {
			out[k] = string(s)
		}
	}
	return out
}

// Bundle reads the artifact at sourcePath, applies the configured
// redaction profile, optionally signs it, and writes the result to
// destPath (plus a compressed .zst sidecar if requested).
func Bundle(sourcePath, destPath string, opts BundleOptions) error {
	env, err := Read(sourcePath)
	if err != nil {
		return fmt.Errorf("artifact: bundle: read source: %w", err)
	}
	policy := resolvePolicy(opts)
	redacted, err := redactRun(env.Payload.Run, policy)
	if err != nil {
		return err
	}
	meta := env.Metadata
	meta.RedactionProfile = string(opts.Profile)
	meta.RedactionPolicyVersion = policy.Version
	bundled, err := BuildEnvelope(redacted, meta)
	if err != nil {
		return fmt.Errorf("artifact: bundle: build envelope: %w", err)
	}
	if opts.Sign {
		bundled, err = Sign(bundled, opts.SigningKey, opts.SigningKeyID)
		if err != nil {
			return fmt.Errorf("artifact: bundle: sign: %w", err)
		}
	}
	if err := Write(destPath, bundled); err != nil {
		return err
	}
	if opts.Compress {
		if err := writeCompressedSidecar(destPath); err != nil {
			return err
		}
	}
	return nil
}

// writeCompressedSidecar writes destPath+".zst", a zstd-compressed copy
// of the artifact for long-term archival of large bundles.
func writeCompressedSidecar(destPath string) error {
	data, err := os.ReadFile(destPath)
	if err != nil {
		return fmt.Errorf("artifact: read for compression: %w", err)
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return fmt.Errorf("artifact: create zstd encoder: %w", err)
	}
	if _, err := enc.Write(data); err != nil {
		enc.Close()
		return fmt.Errorf("artifact: compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("artifact: finalize compression: %w", err)
	}
	return atomicWriteFile(destPath+".zst", buf.Bytes(), 0o644)
}
