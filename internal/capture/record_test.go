package capture

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replaykit/replaykit/internal/artifact"
	"github.com/replaykit/replaykit/internal/canon"
	"github.com/replaykit/replaykit/internal/redact"
)

func TestRecordModelCall_AppendsStep(t *testing.T) {
	ctx, scope := Open(context.Background(), Options{Policy: DefaultPolicy(), Redaction: redact.Default()})

	out, err := RecordModelCall(ctx, "gpt-test", canon.Object{"prompt": canon.String("hi")}, canon.Object{}, func() (canon.Value, error) {
		return canon.Object{"text": canon.String("hello")}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, canon.String("hello"), out.(canon.Object)["text"])

	run := scope.ToRun()
	require.Len(t, run.Steps, 2)
	assert.Equal(t, artifact.StepModelRequest, run.Steps[0].Type)
	assert.Equal(t, "step-000001", run.Steps[0].ID)
	assert.Equal(t, artifact.StepModelResponse, run.Steps[1].Type)
	assert.Equal(t, "step-000002", run.Steps[1].ID)
}

func TestRecordModelStream_AssemblesTextAndEvents(t *testing.T) {
	ctx, scope := Open(context.Background(), Options{Policy: DefaultPolicy(), Redaction: redact.Default()})

	rec, err := RecordModelStream(ctx, "gpt-test", canon.Object{"prompt": canon.String("hi")}, canon.Object{})
	require.NoError(t, err)

	rec.Append(canon.String("hel"))
	rec.Append(canon.String("lo"))
	output, err := rec.Finish()
	require.NoError(t, err)

	obj := output.(canon.Object)
	assert.Equal(t, canon.String("hello"), obj["assembled_text"])
	stream := obj["stream"].(canon.Object)
	assert.Equal(t, canon.Bool(true), stream["completed"])
	events := stream["events"].(canon.Array)
	require.Len(t, events, 2)
	assert.Equal(t, canon.Int(1), events[0].(canon.Object)["index"])
	assert.Equal(t, canon.Int(2), events[1].(canon.Object)["index"])

	run := scope.ToRun()
	require.Len(t, run.Steps, 2)
	assert.Equal(t, artifact.StepModelRequest, run.Steps[0].Type)
	assert.Equal(t, artifact.StepModelResponse, run.Steps[1].Type)
}

func TestRecordModelStream_FailRecordsPartialStreamAsError(t *testing.T) {
	ctx, scope := Open(context.Background(), Options{Policy: DefaultPolicy(), Redaction: redact.Default()})

	rec, err := RecordModelStream(ctx, "gpt-test", canon.Object{}, canon.Object{})
	require.NoError(t, err)

	rec.Append(canon.String("partial"))
	require.NoError(t, rec.Fail(assert.AnError))

	run := scope.ToRun()
	require.Len(t, run.Steps, 2)
	assert.Equal(t, artifact.StepError, run.Steps[1].Type)
	output := run.Steps[1].Input.(canon.Object)
	assert.Equal(t, canon.String("partial"), output["assembled_text"])
}

func TestRecordHTTPCall_PolicyBlocksByDefault(t *testing.T) {
	ctx, scope := Open(context.Background(), Options{Policy: DefaultPolicy(), Redaction: redact.Default()})

	_, err := RecordHTTPCall(ctx, "https://example.com", canon.Object{}, canon.Object{}, func() (canon.Value, error) {
		t.Fatal("call should not run when policy blocks it")
		return nil, nil
	})
	require.Error(t, err)

	run := scope.ToRun()
	require.Len(t, run.Steps, 1)
	assert.Equal(t, artifact.StepError, run.Steps[0].Type)
}

func TestRecordModelCall_NoActiveScope(t *testing.T) {
	_, err := RecordModelCall(context.Background(), "gpt", canon.Object{}, canon.Object{}, func() (canon.Value, error) {
		return canon.Object{}, nil
	})
	require.Error(t, err)
	assert.IsType(t, &NoActiveScopeError{}, err)
}

func TestRecordModelCall_RedactsSensitiveInput(t *testing.T) {
	ctx, scope := Open(context.Background(), Options{Policy: DefaultPolicy(), Redaction: redact.Default()})

	_, err := RecordModelCall(ctx, "gpt-test", canon.Object{"authorization": canon.String("Bearer secretvalue123")}, canon.Object{}, func() (canon.Value, error) {
		return canon.Object{}, nil
	})
	require.NoError(t, err)

	run := scope.ToRun()
	input := run.Steps[0].Input.(canon.Object)
	assert.Equal(t, canon.String(redact.DefaultMask), input["authorization"])
}
