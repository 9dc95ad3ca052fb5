package migrate

import (
	"fmt"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

func runFromV1Payload(obj canon.Object) (artifact.Run, error) {
	payload, ok := obj["payload"].(canon.Object)
	if !ok {
		return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: "missing payload"}
	}
	runObj, ok := payload["run"].(canon.Object)
	if !ok {
		return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: "missing payload.run"}
	}
	return runFromObject(runObj, false)
}

// runFromLegacyPayload maps the pre-1.0 field names onto the current Run
// shape: env_fingerprint -> environment_fingerprint, runtime ->
// runtime_versions, and per-step request/response/step_hash fallbacks.
func runFromLegacyPayload(obj canon.Object) (artifact.Run, error) {
	payload, ok := obj["payload"].(canon.Object)
	if !ok {
		return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: "missing payload"}
	}
	runObj, ok := payload["run"].(canon.Object)
	if !ok {
		return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: "missing payload.run"}
	}
	return runFromObject(runObj, true)
}

func runFromObject(runObj canon.Object, legacy bool) (artifact.Run, error) {
	id := stringField(runObj, "id")
	timestamp := stringField(runObj, "timestamp")

	envKey := "environment_fingerprint"
	runtimeKey := "runtime_versions"
	if legacy {
		envKey = "env_fingerprint"
		runtimeKey = "runtime"
	}
	envFP, err := stringMap(runObj[envKey])
	if err != nil {
		return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("%s: %v", envKey, err)}
	}
	runtimeVersions, err := stringMap(runObj[runtimeKey])
	if err != nil {
		return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("%s: %v", runtimeKey, err)}
	}

	stepsArr, _ := runObj["steps"].(canon.Array)
	steps := make([]artifact.Step, 0, len(stepsArr))
	for i, sv := range stepsArr {
		stepObj, ok := sv.(canon.Object)
		if !ok {
			return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("step %d is not an object", i)}
		}
		step, err := stepFromObject(stepObj, legacy)
		if err != nil {
			return artifact.Run{}, &Error{Code: ErrCodeMalformedPayload, Message: fmt.Sprintf("step %d: %v", i, err)}
		}
		steps = append(steps, step)
	}

	return artifact.Run{
		ID:                     id,
		Timestamp:              timestamp,
		EnvironmentFingerprint: envFP,
		RuntimeVersions:        runtimeVersions,
		Steps:                  steps,
	}, nil
}

func stepFromObject(obj canon.Object, legacy bool) (artifact.Step, error) {
	id := stringField(obj, "id")
	stepType := StepType(stringField(obj, "type"))

	input := obj["input"]
	if legacy && input == nil {
		input = obj["request"]
	}
	output := obj["output"]
	if legacy && output == nil {
		if v, ok := obj["response"]; ok {
			output = v
		} else {
			output = obj["result"]
		}
	}
	metadata := obj["metadata"]

	hash := stringField(obj, "hash")
	if hash == "" {
		hash = stringField(obj, "step_hash")
	}

	return artifact.Step{
		ID:       id,
		Type:     artifact.StepType(stepType),
		Input:    input,
		Output:   output,
		Metadata: metadata,
		Hash:     hash,
	}, nil
}

// StepType is a local alias kept distinct from artifact.StepType so
// legacy step type strings that predate the current enum (e.g. an old
// "llm_call" spelling) can be normalized in one place if one ever turns
// up in a real 0.9 artifact.
type StepType string

func stringMap(v canon.Value) (map[string]string, error) {
	obj, ok := v.(canon.Object)
	if !ok {
		if v == nil {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("expected object")
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		if s, ok := val.(canon.String); ok {
			out[k] = string(s)
		}
	}
	return out, nil
}
