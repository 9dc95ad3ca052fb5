package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashPrefix is prepended to every content hash produced by this package,
// matching the "sha256:<hex>" format used throughout on-disk artifacts.
const HashPrefix = "sha256:"

// Hash returns the "sha256:<hex>" content hash of the canonical encoding
// of v. Unlike hash schemes that mix in a domain-separation tag, artifact
// hashes here are a direct hash of the canonical bytes.
func Hash(v Value) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("canon: hash: %w", err)
	}
	return HashBytes(data), nil
}

// HashBytes returns the "sha256:<hex>" hash of raw bytes, for callers
// that already hold canonical JSON (e.g. read from disk).
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return HashPrefix + hex.EncodeToString(sum[:])
}

// StepHash computes the content hash of a captured step: type, input,
// output, and metadata, with volatile metadata fields stripped so the
// hash reflects only semantically meaningful content.
func StepHash(stepType string, input, output, metadata Value) (string, error) {
	if input == nil {
		input = Null{}
	}
	if output == nil {
		output = Null{}
	}
	if metadata == nil {
		metadata = Object{}
	}
	tree := Object{
		"type":     String(stepType),
		"input":    Canonicalize(input, true),
		"output":   Canonicalize(output, true),
		"metadata": Canonicalize(metadata, true),
	}
	return Hash(tree)
}
