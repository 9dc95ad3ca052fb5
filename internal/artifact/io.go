package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/replaykit/replaykit/internal/canon"
)

// BuildEnvelope assembles a versioned envelope around run, computing its
// checksum. The checksum covers {version, metadata, payload} -- it is
// computed before the checksum field itself exists, so verification
// recomputes the same tree and compares.
func BuildEnvelope(run Run, metadata EnvelopeMetadata) (Envelope, error) {
	if metadata.RunID == "" {
		metadata.RunID = run.ID
	}
	env := Envelope{
		Version:  DefaultArtifactVersion,
		Metadata: metadata,
		Payload:  Payload{Run: run},
	}
	checksum, err := computeChecksum(env)
	if err != nil {
		return Envelope{}, err
	}
	env.Checksum = checksum
	return env, nil
}

func computeChecksum(env Envelope) (string, error) {
	tree := canon.Object{
		"version":  canon.String(env.Version),
		"metadata": metadataToValue(env.Metadata),
		"payload":  canon.Object{"run": runToValue(env.Payload.Run)},
	}
	return canon.Hash(tree)
}

// Write atomically persists an envelope to path: it renders canonical
// pretty-printed JSON to a temp file in the same directory, fsyncs it,
// and renames it into place, so readers never observe a partially
// written artifact.
func Write(path string, env Envelope) error {
	data, err := canon.MarshalIndent(envelopeToValue(env))
	if err != nil {
		return fmt.Errorf("artifact: marshal envelope: %w", err)
	}
	return atomicWriteFile(path, data, 0o644)
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".rpk-tmp-*")
	if err != nil {
		return &IntegrityError{Code: ErrCodeIO, Message: "create temp file", Path: path}
	}
	tmpName := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IntegrityError{Code: ErrCodeIO, Message: fmt.Sprintf("write temp file: %v", err), Path: path}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &IntegrityError{Code: ErrCodeIO, Message: fmt.Sprintf("fsync temp file: %v", err), Path: path}
	}
	if err := tmp.Close(); err != nil {
		return &IntegrityError{Code: ErrCodeIO, Message: fmt.Sprintf("close temp file: %v", err), Path: path}
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return &IntegrityError{Code: ErrCodeIO, Message: fmt.Sprintf("chmod temp file: %v", err), Path: path}
	}
	if err := os.Rename(tmpName, path); err != nil {
		return &IntegrityError{Code: ErrCodeIO, Message: fmt.Sprintf("rename into place: %v", err), Path: path}
	}
	success = true
	return nil
}

// Read loads and validates an artifact from path: parses JSON, checks
// structural validity, and verifies the checksum matches the payload.
func Read(path string) (Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, &IntegrityError{Code: ErrCodeIO, Message: fmt.Sprintf("read file: %v", err), Path: path}
	}
	return ReadBytes(data, path)
}

// ReadBytes parses and validates raw artifact bytes, for callers that
// already have the artifact in memory; Read uses it after loading the
// file.
func ReadBytes(data []byte, path string) (Envelope, error) {
	tree, err := canon.FromJSON(data)
	if err != nil {
		return Envelope{}, &IntegrityError{Code: ErrCodeValidation, Message: fmt.Sprintf("invalid JSON: %v", err), Path: path}
	}
	env, err := valueToEnvelope(tree)
	if err != nil {
		return Envelope{}, &IntegrityError{Code: ErrCodeValidation, Message: err.Error(), Path: path}
	}
	if err := Validate(env); err != nil {
		if ie, ok := err.(*IntegrityError); ok {
			ie.Path = path
		}
		return Envelope{}, err
	}
	checksum, err := computeChecksum(env)
	if err != nil {
		return Envelope{}, err
	}
	if checksum != env.Checksum {
		return Envelope{}, &IntegrityError{
			Code:    ErrCodeChecksumMismatch,
			Message: fmt.Sprintf("checksum mismatch: expected %s, computed %s", env.Checksum, checksum),
			Path:    path,
		}
	}
	return env, nil
}
