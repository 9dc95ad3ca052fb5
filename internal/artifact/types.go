// Package artifact reads and writes .rpk replay artifacts: content-hashed,
// checksum-verified, optionally signed JSON envelopes wrapping a captured
// run.
package artifact

import "github.com/replaykit/replaykit/internal/canon"

// StepType enumerates the kinds of boundary crossings a step can record.
// The set is closed: these eight values are the only ones a conforming
// artifact may use.
type StepType string

const (
	// StepAgentCommand records a shell/agent command invocation.
	StepAgentCommand StepType = "agent.command"
	// StepPromptRender records a prompt template being rendered before
	// it crosses the model boundary.
	StepPromptRender StepType = "prompt.render"
	// StepModelRequest records the outbound half of a model call.
	StepModelRequest StepType = "model.request"
	// StepModelResponse records the inbound half of a model call.
	StepModelResponse StepType = "model.response"
	// StepToolRequest records the outbound half of a tool call.
	StepToolRequest StepType = "tool.request"
	// StepToolResponse records the inbound half of a tool call.
	StepToolResponse StepType = "tool.response"
	// StepError records a policy violation or runtime failure.
	StepError StepType = "error.event"
	// StepOutputFinal records the final output produced by a run.
	StepOutputFinal StepType = "output.final"
)

var validStepTypes = map[StepType]bool{
	StepAgentCommand:  true,
	StepPromptRender:  true,
	StepModelRequest:  true,
	StepModelResponse: true,
	StepToolRequest:   true,
	StepToolResponse:  true,
	StepError:         true,
	StepOutputFinal:   true,
}

// IsValidStepType reports whether t is one of the recognized step types.
func IsValidStepType(t StepType) bool {
	return validStepTypes[t]
}

// Step is a single recorded boundary crossing within a run.
type Step struct {
	ID       string        `json:"id"`
	Type     StepType      `json:"type"`
	Input    canon.Value   `json:"input"`
	Output   canon.Value   `json:"output"`
	Metadata canon.Value   `json:"metadata"`
	Hash     string        `json:"hash"`
}

// WithHash returns a copy of s with Hash recomputed from its current
// Type/Input/Output/Metadata.
func (s Step) WithHash() (Step, error) {
	h, err := canon.StepHash(string(s.Type), s.Input, s.Output, s.Metadata)
	if err != nil {
		return Step{}, err
	}
	s.Hash = h
	return s, nil
}

// Run is a captured sequence of steps plus the environment it was
// captured in.
type Run struct {
	ID                     string            `json:"id"`
	Timestamp              string            `json:"timestamp"`
	EnvironmentFingerprint map[string]string `json:"environment_fingerprint"`
	RuntimeVersions        map[string]string `json:"runtime_versions"`
	Steps                  []Step            `json:"steps"`
}

// WithHashedSteps returns a copy of r whose steps all have freshly
// computed hashes.
func (r Run) WithHashedSteps() (Run, error) {
	steps := make([]Step, len(r.Steps))
	for i, s := range r.Steps {
		hs, err := s.WithHash()
		if err != nil {
			return Run{}, err
		}
		steps[i] = hs
	}
	r.Steps = steps
	return r, nil
}

// EnvelopeMetadata carries run identity and provenance information that
// sits alongside, not inside, the recorded payload.
type EnvelopeMetadata struct {
	RunID             string `json:"run_id"`
	CreatedAt         string `json:"created_at"`
	RedactionProfile  string `json:"redaction_profile,omitempty"`
	RedactionPolicyVersion string `json:"redaction_policy_version,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// Signature is attached to an Envelope when the artifact has been signed.
type Signature struct {
	Algorithm string `json:"algorithm"`
	KeyID     string `json:"key_id"`
	Value     string `json:"value"`
}

// Envelope is the on-disk .rpk artifact format: a versioned wrapper
// carrying a Run payload, a checksum over {version, metadata, payload},
// and an optional signature.
type Envelope struct {
	Version   string           `json:"version"`
	Metadata  EnvelopeMetadata `json:"metadata"`
	Payload   Payload          `json:"payload"`
	Checksum  string           `json:"checksum"`
	Signature *Signature       `json:"signature,omitempty"`
}

// Payload wraps the recorded run. It is a struct (rather than a bare Run)
// so the envelope schema can grow additional payload kinds later without
// breaking the top-level shape.
type Payload struct {
	Run Run `json:"run"`
}
