// Package plugin dispatches lifecycle events to observer plugins without
// letting a misbehaving plugin take down the capture, replay, or diff
// operation it's observing. Only internal/diff dispatches events
// (DiffStart/DiffEnd); capture and replay do not call a Manager.
package plugin

// APIVersion is the lifecycle hook contract version. Manager does not
// check it: NewManager registers every plugin it is given.
const APIVersion = "1.0"

// CaptureStartEvent fires when a capture scope opens.
type CaptureStartEvent struct {
	RunID string
}

// CaptureStepEvent fires after each step is recorded.
type CaptureStepEvent struct {
	RunID   string
	StepID  string
	StepType string
}

// CaptureEndEvent fires when a capture scope's run is finalized.
type CaptureEndEvent struct {
	RunID     string
	StepCount int
}

// ReplayStartEvent fires when a replay begins.
type ReplayStartEvent struct {
	SourceRunID string
	Mode        string
}

// ReplayEndEvent fires when a replay completes.
type ReplayEndEvent struct {
	SourceRunID string
	ReplayRunID string
}

// DiffStartEvent fires when a diff begins.
type DiffStartEvent struct {
	LeftRunID  string
	RightRunID string
}

// DiffEndEvent fires when a diff completes.
type DiffEndEvent struct {
	LeftRunID  string
	RightRunID string
	Identical  bool
}

// LifecyclePlugin observes capture/replay/diff lifecycle events. Every
// method has a no-op default via NoopPlugin, so a plugin only needs to
// implement the hooks it cares about.
type LifecyclePlugin interface {
	Name() string
	OnCaptureStart(CaptureStartEvent)
	OnCaptureStep(CaptureStepEvent)
	OnCaptureEnd(CaptureEndEvent)
	OnReplayStart(ReplayStartEvent)
	OnReplayEnd(ReplayEndEvent)
	OnDiffStart(DiffStartEvent)
	OnDiffEnd(DiffEndEvent)
}

// NoopPlugin implements every LifecyclePlugin method as a no-op. Embed it
// in a concrete plugin type and override only the hooks it needs.
type NoopPlugin struct{ PluginName string }

func (p NoopPlugin) Name() string                            { return p.PluginName }
func (NoopPlugin) OnCaptureStart(CaptureStartEvent)           {}
func (NoopPlugin) OnCaptureStep(CaptureStepEvent)             {}
func (NoopPlugin) OnCaptureEnd(CaptureEndEvent)               {}
func (NoopPlugin) OnReplayStart(ReplayStartEvent)             {}
func (NoopPlugin) OnReplayEnd(ReplayEndEvent)                 {}
func (NoopPlugin) OnDiffStart(DiffStartEvent)                 {}
func (NoopPlugin) OnDiffEnd(DiffEndEvent)                     {}
