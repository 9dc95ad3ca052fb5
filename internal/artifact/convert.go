package artifact

import (
	"fmt"

	"github.com/replaykit/replaykit/internal/canon"
)

func stringMapToValue(m map[string]string) canon.Value {
	obj := make(canon.Object, len(m))
	for k, v := range m {
		obj[k] = canon.String(v)
	}
	return obj
}

func valueToStringMap(v canon.Value) (map[string]string, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		if v == nil {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("artifact: expected object, got %T", v)
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		s, ok := val.(canon.String)
		if !ok {
			return nil, fmt.Errorf("artifact: expected string value for key %q", k)
		}
		out[k] = string(s)
	}
	return out, nil
}

func stepToValue(s Step) canon.Value {
	return canon.Object{
		"id":       canon.String(s.ID),
		"type":     canon.String(string(s.Type)),
		"input":    orNull(s.Input),
		"output":   orNull(s.Output),
		"metadata": orNull(s.Metadata),
		"hash":     canon.String(s.Hash),
	}
}

func orNull(v canon.Value) canon.Value {
	if v == nil {
		return canon.Null{}
	}
	return v
}

func valueToStep(v canon.Value) (Step, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		return Step{}, fmt.Errorf("artifact: step must be an object")
	}
	id, _ := obj["id"].(canon.String)
	typ, _ := obj["type"].(canon.String)
	hash, _ := obj["hash"].(canon.String)
	return Step{
		ID:       string(id),
		Type:     StepType(typ),
		Input:    obj["input"],
		Output:   obj["output"],
		Metadata: obj["metadata"],
		Hash:     string(hash),
	}, nil
}

func runToValue(r Run) canon.Value {
	steps := make(canon.Array, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = stepToValue(s)
	}
	return canon.Object{
		"id":                      canon.String(r.ID),
		"timestamp":               canon.String(r.Timestamp),
		"environment_fingerprint": stringMapToValue(r.EnvironmentFingerprint),
		"runtime_versions":        stringMapToValue(r.RuntimeVersions),
		"steps":                   steps,
	}
}

func valueToRun(v canon.Value) (Run, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		return Run{}, fmt.Errorf("artifact: run must be an object")
	}
	id, _ := obj["id"].(canon.String)
	ts, _ := obj["timestamp"].(canon.String)
	envFP, err := valueToStringMap(obj["environment_fingerprint"])
	if err != nil {
		return Run{}, fmt.Errorf("environment_fingerprint: %w", err)
	}
	rv, err := valueToStringMap(obj["runtime_versions"])
	if err != nil {
		return Run{}, fmt.Errorf("runtime_versions: %w", err)
	}
	stepsArr, _ := obj["steps"].(canon.Array)
	steps := make([]Step, len(stepsArr))
	for i, sv := range stepsArr {
		s, err := valueToStep(sv)
		if err != nil {
			return Run{}, fmt.Errorf("steps[%d]: %w", i, err)
		}
		steps[i] = s
	}
	return Run{
		ID:                     string(id),
		Timestamp:              string(ts),
		EnvironmentFingerprint: envFP,
		RuntimeVersions:        rv,
		Steps:                  steps,
	}, nil
}

func metadataToValue(m EnvelopeMetadata) canon.Value {
	obj := canon.Object{
		"run_id":     canon.String(m.RunID),
		"created_at": canon.String(m.CreatedAt),
	}
	if m.RedactionProfile != "" {
		obj["redaction_profile"] = canon.String(m.RedactionProfile)
	}
	if m.RedactionPolicyVersion != "" {
		obj["redaction_policy_version"] = canon.String(m.RedactionPolicyVersion)
	}
	for k, v := range m.Extra {
		obj[k] = canon.String(v)
	}
	return obj
}

func valueToMetadata(v canon.Value) (EnvelopeMetadata, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		return EnvelopeMetadata{}, fmt.Errorf("artifact: metadata must be an object")
	}
	runID, _ := obj["run_id"].(canon.String)
	createdAt, _ := obj["created_at"].(canon.String)
	profile, _ := obj["redaction_profile"].(canon.String)
	policyVer, _ := obj["redaction_policy_version"].(canon.String)
	extra := map[string]string{}
	for k, val := range obj {
		switch k {
		case "run_id", "created_at", "redaction_profile", "redaction_policy_version":
			continue
		}
		if s, ok := val.(canon.String); ok {
			extra[k] = string(s)
		}
	}
	if len(extra) == 0 {
		extra = nil
	}
	return EnvelopeMetadata{
		RunID:                  string(runID),
		CreatedAt:              string(createdAt),
		RedactionProfile:       string(profile),
		RedactionPolicyVersion: string(policyVer),
		Extra:                  extra,
	}, nil
}

// signaturePayloadValue builds the {version, metadata, payload, checksum}
// tree that a signature is computed over -- everything in the envelope
// except the signature field itself.
func signaturePayloadValue(e Envelope) canon.Value {
	return canon.Object{
		"version":  canon.String(e.Version),
		"metadata": metadataToValue(e.Metadata),
		"payload":  canon.Object{"run": runToValue(e.Payload.Run)},
		"checksum": canon.String(e.Checksum),
	}
}

func envelopeToValue(e Envelope) canon.Value {
	obj := canon.Object{
		"version":  canon.String(e.Version),
		"metadata": metadataToValue(e.Metadata),
		"payload":  canon.Object{"run": runToValue(e.Payload.Run)},
		"checksum": canon.String(e.Checksum),
	}
	if e.Signature != nil {
		obj["signature"] = canon.Object{
			"algorithm": canon.String(e.Signature.Algorithm),
			"key_id":    canon.String(e.Signature.KeyID),
			"value":     canon.String(e.Signature.Value),
		}
	}
	return obj
}

func valueToEnvelope(v canon.Value) (Envelope, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		return Envelope{}, fmt.Errorf("artifact: envelope must be an object")
	}
	version, _ := obj["version"].(canon.String)
	checksum, _ := obj["checksum"].(canon.String)
	meta, err := valueToMetadata(obj["metadata"])
	if err != nil {
		return Envelope{}, fmt.Errorf("metadata: %w", err)
	}
	payloadObj, ok := obj["payload"].(canon.Object)
	if !ok {
		return Envelope{}, fmt.Errorf("artifact: payload must be an object")
	}
	run, err := valueToRun(payloadObj["run"])
	if err != nil {
		return Envelope{}, fmt.Errorf("payload.run: %w", err)
	}
	env := Envelope{
		Version:  string(version),
		Metadata: meta,
		Payload:  Payload{Run: run},
		Checksum: string(checksum),
	}
	if sigVal, ok := obj["signature"]; ok {
		sigObj, ok := sigVal.(canon.Object)
		if !ok {
			return Envelope{}, fmt.Errorf("artifact: signature must be an object")
		}
		alg, _ := sigObj["algorithm"].(canon.String)
		keyID, _ := sigObj["key_id"].(canon.String)
		val, _ := sigObj["value"].(canon.String)
		env.Signature = &Signature{Algorithm: string(alg), KeyID: string(keyID), Value: string(val)}
	}
	return env, nil
}
