package capture

import (
	"context"
	"fmt"
	"strings"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
)

// RecordModelCall records a call across the model boundary as a paired
// model.request/model.response step, or an error.event step if policy
// blocks it or call fails.
func RecordModelCall(ctx context.Context, target string, input, metadata canon.Value, call func() (canon.Value, error)) (canon.Value, error) {
	return recordPaired(ctx, BoundaryModel, artifact.StepModelRequest, artifact.StepModelResponse, target, input, metadata, call)
}

// RecordToolCall records a call across the tool boundary as a paired
// tool.request/tool.response step, or an error.event step if policy
// blocks it or call fails.
func RecordToolCall(ctx context.Context, target string, input, metadata canon.Value, call func() (canon.Value, error)) (canon.Value, error) {
	return recordPaired(ctx, BoundaryTool, artifact.StepToolRequest, artifact.StepToolResponse, target, input, metadata, call)
}

// RecordAgentCommand records a shell/agent command invocation as a single
// agent.command step.
func RecordAgentCommand(ctx context.Context, target string, input, metadata canon.Value, call func() (canon.Value, error)) (canon.Value, error) {
	return recordUnary(ctx, BoundaryTool, artifact.StepAgentCommand, target, input, metadata, call)
}

func recordUnary(ctx context.Context, boundary Boundary, stepType artifact.StepType, target string, input, metadata canon.Value, call func() (canon.Value, error)) (canon.Value, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return nil, &NoActiveScopeError{}
	}
	if err := scope.policy.AssertAllowed(boundary, target); err != nil {
		scope.recordStep(artifact.StepError, input, errorOutput(err), metadata)
		return nil, err
	}
	output, err := call()
	if err != nil {
		scope.recordStep(artifact.StepError, input, errorOutput(err), metadata)
		return nil, err
	}
	if _, hashErr := scope.recordStep(stepType, input, output, metadata); hashErr != nil {
		return output, hashErr
	}
	return output, nil
}

// recordPaired records a request step before invoking call, then either a
// response step on success or an error.event step on failure -- the
// request/response boundary-crossing pattern shared by the model and tool
// boundaries.
func recordPaired(ctx context.Context, boundary Boundary, requestType, responseType artifact.StepType, target string, input, metadata canon.Value, call func() (canon.Value, error)) (canon.Value, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return nil, &NoActiveScopeError{}
	}
	if err := scope.policy.AssertAllowed(boundary, target); err != nil {
		scope.recordStep(artifact.StepError, input, errorOutput(err), metadata)
		return nil, err
	}
	if _, err := scope.recordStep(requestType, input, canon.Null{}, metadata); err != nil {
		return nil, err
	}
	output, err := call()
	if err != nil {
		scope.recordStep(artifact.StepError, input, errorOutput(err), metadata)
		return nil, err
	}
	if _, hashErr := scope.recordStep(responseType, canon.Null{}, output, metadata); hashErr != nil {
		return output, hashErr
	}
	return output, nil
}

// StreamRecorder accumulates a streamed model response's deltas between
// the model.request step and the eventual model.response step: an
// ordered output.stream.events[] list (1-based indices), a completion
// flag, and a deterministic assembled_text concatenation of the deltas
// in observed order -- assembled_text is what replay and diff consume,
// mirroring the source's chunk-then-assemble stream capture.
type StreamRecorder struct {
	scope    *Scope
	metadata canon.Value
	events   canon.Array
	text     strings.Builder
	done     bool
}

// RecordModelStream records the request half of a streamed model call and
// returns a StreamRecorder to accumulate the response deltas as they
// arrive from the source iterator/channel.
func RecordModelStream(ctx context.Context, target string, input, metadata canon.Value) (*StreamRecorder, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return nil, &NoActiveScopeError{}
	}
	if err := scope.policy.AssertAllowed(BoundaryModel, target); err != nil {
		scope.recordStep(artifact.StepError, input, errorOutput(err), metadata)
		return nil, err
	}
	if _, err := scope.recordStep(artifact.StepModelRequest, input, canon.Null{}, metadata); err != nil {
		return nil, err
	}
	return &StreamRecorder{scope: scope, metadata: metadata}, nil
}

// Append records one streamed delta in arrival order. String deltas
// contribute their text to the recorder's assembled_text; non-string
// deltas (e.g. structured tool-call fragments) are recorded but don't
// contribute text.
func (r *StreamRecorder) Append(delta canon.Value) {
	if r.done {
		return
	}
	idx := len(r.events) + 1
	r.events = append(r.events, canon.Object{"index": canon.Int(idx), "delta": delta})
	if text, ok := delta.(canon.String); ok {
		r.text.WriteString(string(text))
	}
}

// Finish records the accumulated stream as a single model.response step
// once the source is exhausted, and returns the recorded output.
func (r *StreamRecorder) Finish() (canon.Value, error) {
	if r.done {
		return nil, fmt.Errorf("capture: stream already finished")
	}
	r.done = true
	output := r.streamOutput(true)
	if _, err := r.scope.recordStep(artifact.StepModelResponse, canon.Null{}, output, r.metadata); err != nil {
		return nil, err
	}
	return output, nil
}

// Fail records a single error.event step whose input is the partial
// stream gathered so far, for a source that fails before it completes.
func (r *StreamRecorder) Fail(err error) error {
	if r.done {
		return nil
	}
	r.done = true
	_, recErr := r.scope.recordStep(artifact.StepError, r.streamOutput(false), errorOutput(err), r.metadata)
	return recErr
}

func (r *StreamRecorder) streamOutput(completed bool) canon.Value {
	return canon.Object{
		"stream": canon.Object{
			"events":    r.events,
			"completed": canon.Bool(completed),
		},
		"assembled_text": canon.String(r.text.String()),
	}
}

// RecordPromptRender records a prompt template being rendered into its
// final form before it crosses the model boundary.
func RecordPromptRender(ctx context.Context, template, rendered canon.Value, metadata canon.Value) error {
	scope, ok := FromContext(ctx)
	if !ok {
		return &NoActiveScopeError{}
	}
	_, err := scope.recordStep(artifact.StepPromptRender, template, rendered, metadata)
	return err
}

// RecordHTTPCall records an outbound HTTP call crossing the tool boundary
// as a paired tool.request/tool.response step, or an error.event step on
// failure. HTTP is the transport this build uses for out-of-process tool
// calls, so it shares the tool.request/tool.response vocabulary rather
// than introducing HTTP-specific step types.
func RecordHTTPCall(ctx context.Context, url string, request, metadata canon.Value, call func() (canon.Value, error)) (canon.Value, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return nil, &NoActiveScopeError{}
	}
	if err := scope.policy.AssertAllowed(BoundaryHTTP, url); err != nil {
		scope.recordStep(artifact.StepError, request, errorOutput(err), metadata)
		return nil, err
	}
	reqPayload := request
	if !scope.policy.CaptureHTTPBodies {
		reqPayload = stripBody(request)
	}
	if _, err := scope.recordStep(artifact.StepToolRequest, reqPayload, canon.Null{}, metadata); err != nil {
		return nil, err
	}
	response, err := call()
	if err != nil {
		scope.recordStep(artifact.StepError, reqPayload, errorOutput(err), metadata)
		return nil, err
	}
	respPayload := response
	if !scope.policy.CaptureHTTPBodies {
		respPayload = stripBody(response)
	}
	if _, err := scope.recordStep(artifact.StepToolResponse, canon.Null{}, respPayload, metadata); err != nil {
		return response, err
	}
	return response, nil
}

// RecordOutputFinal records the final output produced by a run -- the
// assembled text once all model.response chunks have arrived, or any
// other terminal result the caller wants to surface as the run's output.
func RecordOutputFinal(ctx context.Context, output canon.Value, metadata canon.Value) error {
	scope, ok := FromContext(ctx)
	if !ok {
		return &NoActiveScopeError{}
	}
	_, err := scope.recordStep(artifact.StepOutputFinal, canon.Null{}, output, metadata)
	return err
}

// RecordError records a standalone error.event step not tied to a
// specific call, e.g. an assertion failure surfaced mid-run.
func RecordError(ctx context.Context, err error, metadata canon.Value) error {
	scope, ok := FromContext(ctx)
	if !ok {
		return &NoActiveScopeError{}
	}
	_, recordErr := scope.recordStep(artifact.StepError, canon.Null{}, errorOutput(err), metadata)
	return recordErr
}

func errorOutput(err error) canon.Value {
	return canon.Object{"error": canon.String(err.Error())}
}

func stripBody(v canon.Value) canon.Value {
	obj, ok := v.(canon.Object)
	if !ok {
		return v
	}
	out := make(canon.Object, len(obj))
	for k, val := range obj {
		if lowerASCIIEq(k, "body") {
			continue
		}
		out[k] = val
	}
	return out
}

func lowerASCIIEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
