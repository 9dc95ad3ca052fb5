package artifact

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SupportedMajorVersion is the only artifact major version this build
// can read and write. Minor versions within it are additive and always
// accepted.
const SupportedMajorVersion = 1

// DefaultArtifactVersion is stamped on artifacts written by this build.
const DefaultArtifactVersion = "1.0"

var hashPattern = regexp.MustCompile(`^sha256:[0-9a-f]{64}$`)

// ParseVersion splits a "major.minor" version string.
func ParseVersion(version string) (major, minor int, err error) {
	parts := strings.SplitN(version, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("artifact: malformed version %q", version)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("artifact: malformed major version in %q: %w", version, err)
	}
	minor, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("artifact: malformed minor version in %q: %w", version, err)
	}
	return major, minor, nil
}

// IsVersionCompatible reports whether an artifact of the given version
// can be read by this build -- major versions must match exactly.
func IsVersionCompatible(version string) bool {
	major, _, err := ParseVersion(version)
	if err != nil {
		return false
	}
	return major == SupportedMajorVersion
}

// Validate performs structural validation of an envelope: required
// fields present, version compatible, step hashes well-formed, step
// types recognized. It does not recompute or verify the checksum --
// callers combine this with checksum verification in Read.
func Validate(e Envelope) error {
	if e.Version == "" {
		return &IntegrityError{Code: ErrCodeValidation, Message: "missing version"}
	}
	if !IsVersionCompatible(e.Version) {
		return &IntegrityError{
			Code:    ErrCodeUnsupportedMajor,
			Message: fmt.Sprintf("unsupported artifact major version in %q (expected %d.x)", e.Version, SupportedMajorVersion),
		}
	}
	if e.Metadata.RunID == "" {
		return &IntegrityError{Code: ErrCodeValidation, Message: "metadata.run_id is required"}
	}
	if e.Checksum == "" {
		return &IntegrityError{Code: ErrCodeValidation, Message: "checksum is required"}
	}
	if e.Payload.Run.ID == "" {
		return &IntegrityError{Code: ErrCodeValidation, Message: "payload.run.id is required"}
	}
	for i, step := range e.Payload.Run.Steps {
		if step.ID == "" {
			return &IntegrityError{Code: ErrCodeValidation, Message: fmt.Sprintf("step %d: missing id", i)}
		}
		if !IsValidStepType(step.Type) {
			return &IntegrityError{Code: ErrCodeValidation, Message: fmt.Sprintf("step %d: unrecognized type %q", i, step.Type)}
		}
		if !hashPattern.MatchString(step.Hash) {
			return &IntegrityError{Code: ErrCodeValidation, Message: fmt.Sprintf("step %d: malformed hash %q", i, step.Hash)}
		}
	}
	return nil
}

// SchemaPathForVersion returns the reference JSON Schema document path
// for an artifact major version, used for documentation and by external
// tooling that wants full JSON Schema validation rather than the
// structural checks Validate performs.
func SchemaPathForVersion(major int) string {
	return fmt.Sprintf("schemas/rpk-%d.0.schema.json", major)
}
