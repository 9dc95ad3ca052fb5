// Package migrate upgrades older .rpk artifact formats to the current
// schema version.
package migrate

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

// LegacySourceVersion is the pre-1.0 artifact format this package knows
// how to upgrade.
const LegacySourceVersion = "0.9"

// Status reports whether a migration actually transformed the artifact
// or found it already at the current version.
type Status string

const (
	StatusMigrated       Status = "migrated"
	StatusAlreadyCurrent Status = "already_current"
)

// Result summarizes a migration.
type Result struct {
	SourceVersion         string
	TargetVersion         string
	SourceRunID           string
	MigratedRunID         string
	TotalSteps            int
	PreservedStepHashes   int
	RecomputedStepHashes  int
	Status                Status
}

// ErrorCode categorizes a migration failure.
type ErrorCode string

const (
	ErrCodeUnsupportedVersion ErrorCode = "unsupported_version"
	ErrCodeMalformedPayload   ErrorCode = "malformed_payload"
	ErrCodeChecksumInvalid    ErrorCode = "checksum_invalid"
	ErrCodeRecomputeFailed    ErrorCode = "recompute_failed"
)

// Error reports a migration failure.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	if e.Code == "" {
		return "migrate: " + e.Message
	}
	return fmt.Sprintf("migrate: %s: %s", e.Code, e.Message)
}

// IsUnsupportedVersion reports whether err is an Error caused by a source
// artifact version this package doesn't know how to migrate.
func IsUnsupportedVersion(err error) bool {
	me, ok := err.(*Error)
	return ok && me.Code == ErrCodeUnsupportedVersion
}

// IsMalformedPayload reports whether err is an Error caused by a source
// artifact that isn't valid JSON or doesn't have the expected shape.
func IsMalformedPayload(err error) bool {
	me, ok := err.(*Error)
	return ok && me.Code == ErrCodeMalformedPayload
}

// IsChecksumInvalid reports whether err is an Error caused by a source
// artifact whose stored checksum doesn't match its recomputed content hash.
func IsChecksumInvalid(err error) bool {
	me, ok := err.(*Error)
	return ok && me.Code == ErrCodeChecksumInvalid
}

// IsRecomputeFailed reports whether err is an Error caused by a failure
// to rehash or rewrite a step during migration.
func IsRecomputeFailed(err error) bool {
	me, ok := err.(*Error)
	return ok && me.Code == ErrCodeRecomputeFailed
}

// File reads the artifact at sourcePath, migrates it to the current
// schema version if needed, and writes the result to destPath. A source
// already at the current version is checksum-verified and reported as
// already_current; nothing is written to destPath in that case.
func File(sourcePath, destPath string) (Result, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return Result{}, &Error{Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("read %s: %v", sourcePath, err)}
	}
	return Bytes(data, destPath)
}

// Bytes migrates raw artifact bytes and writes the result to destPath.
func Bytes(data []byte, destPath string) (Result, error) {
	tree, err := canon.FromJSON(data)
	if err != nil {
		return Result{}, &Error{Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	obj, ok := tree.(canon.Object)
	if !ok {
		return Result{}, &Error{Code: ErrCodeMalformedPayload, Message: "artifact root must be an object"}
	}
	version := stringField(obj, "version")

	if strings.HasPrefix(version, "1.") {
		return migrateFromV1(obj, destPath)
	}
	if version == LegacySourceVersion {
		return migrateFromLegacy(obj, destPath)
	}
	return Result{}, &Error{Code: ErrCodeUnsupportedVersion, Message: fmt.Sprintf("unsupported source version %q", version)}
}

func migrateFromV1(obj canon.Object, destPath string) (Result, error) {
	if err := verifyChecksum(obj); err != nil {
		return Result{}, err
	}
	if stringField(obj, "version") == artifact.DefaultArtifactVersion {
		return Result{Status: StatusAlreadyCurrent, SourceVersion: artifact.DefaultArtifactVersion, TargetVersion: artifact.DefaultArtifactVersion}, nil
	}
	run, err := runFromV1Payload(obj)
	if err != nil {
		return Result{}, err
	}
	return writeMigrated(run, obj, stringField(obj, "version"), destPath)
}

func migrateFromLegacy(obj canon.Object, destPath string) (Result, error) {
	if err := verifyChecksum(obj); err != nil {
		return Result{}, err
	}
	run, err := runFromLegacyPayload(obj)
	if err != nil {
		return Result{}, err
	}
	return writeMigrated(run, obj, LegacySourceVersion, destPath)
}

func verifyChecksum(obj canon.Object) error {
	checksum, ok := obj["checksum"].(canon.String)
	if !ok || checksum == "" {
		return &Error{Code: ErrCodeChecksumInvalid, Message: "source artifact has no checksum to verify"}
	}
	tree := canon.Object{
		"version":  obj["version"],
		"metadata": obj["metadata"],
		"payload":  obj["payload"],
	}
	computed, err := canon.Hash(tree)
	if err != nil {
		return &Error{Code: ErrCodeRecomputeFailed, Message: fmt.Sprintf("compute checksum: %v", err)}
	}
	if computed != string(checksum) {
		return &Error{Code: ErrCodeChecksumInvalid, Message: fmt.Sprintf("source checksum mismatch: expected %s, computed %s", checksum, computed)}
	}
	return nil
}

func writeMigrated(run artifact.Run, srcObj canon.Object, sourceVersion, destPath string) (Result, error) {
	total := len(run.Steps)
	preserved := 0
	steps := make([]artifact.Step, total)
	for i, s := range run.Steps {
		hashed, err := s.WithHash()
		if err != nil {
			return Result{}, &Error{Code: ErrCodeRecomputeFailed, Message: fmt.Sprintf("rehash step %d: %v", i, err)}
		}
		if hashed.Hash == s.Hash {
			preserved++
		}
		steps[i] = hashed
	}
	run.Steps = steps

	migratedID := run.ID
	if migratedID == "" {
		migratedID = uuid.NewString()
	}
	run.ID = migratedID

	env, err := artifact.BuildEnvelope(run, artifact.EnvelopeMetadata{
		RunID:     migratedID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Extra:     map[string]string{"migrated_from": sourceVersion},
	})
	if err != nil {
		return Result{}, &Error{Code: ErrCodeRecomputeFailed, Message: fmt.Sprintf("build migrated envelope: %v", err)}
	}
	if err := artifact.Write(destPath, env); err != nil {
		return Result{}, &Error{Code: ErrCodeRecomputeFailed, Message: fmt.Sprintf("write migrated artifact: %v", err)}
	}

	sourceRunID := ""
	if meta, ok := srcObj["metadata"].(canon.Object); ok {
		if rid, ok := meta["run_id"].(canon.String); ok {
			sourceRunID = string(rid)
		}
	}

	return Result{
		SourceVersion:        sourceVersion,
		TargetVersion:        artifact.DefaultArtifactVersion,
		SourceRunID:          sourceRunID,
		MigratedRunID:        migratedID,
		TotalSteps:           total,
		PreservedStepHashes:  preserved,
		RecomputedStepHashes: total - preserved,
		Status:               StatusMigrated,
	}, nil
}

func stringField(obj canon.Object, key string) string {
	if s, ok := obj[key].(canon.String); ok {
		return string(s)
	}
	return ""
}
