package plugin

import "fmt"

// Diagnostic records a plugin hook failure. Manager accumulates these
// instead of letting a plugin panic or error propagate into the
// operation it's observing.
type Diagnostic struct {
	PluginName string
	Hook       string
	Message    string
}

// Manager dispatches lifecycle events to a set of registered plugins,
// isolating faults so one broken plugin never affects another or the
// host operation.
type Manager struct {
	plugins     []LifecyclePlugin
	Diagnostics []Diagnostic
}

// NewManager creates a Manager for the given plugins.
func NewManager(plugins ...LifecyclePlugin) *Manager {
	return &Manager{plugins: plugins}
}

func (m *Manager) dispatch(hook string, call func(LifecyclePlugin)) {
	for _, p := range m.plugins {
		m.safeCall(p, hook, call)
	}
}

func (m *Manager) safeCall(p LifecyclePlugin, hook string, call func(LifecyclePlugin)) {
	defer func() {
		if r := recover(); r != nil {
			m.Diagnostics = append(m.Diagnostics, Diagnostic{
				PluginName: p.Name(),
				Hook:       hook,
				Message:    fmt.Sprintf("panic: %v", r),
			})
		}
	}()
	call(p)
}

func (m *Manager) OnCaptureStart(e CaptureStartEvent) {
	m.dispatch("OnCaptureStart", func(p LifecyclePlugin) { p.OnCaptureStart(e) })
}

func (m *Manager) OnCaptureStep(e CaptureStepEvent) {
	m.dispatch("OnCaptureStep", func(p LifecyclePlugin) { p.OnCaptureStep(e) })
}

func (m *Manager) OnCaptureEnd(e CaptureEndEvent) {
	m.dispatch("OnCaptureEnd", func(p LifecyclePlugin) { p.OnCaptureEnd(e) })
}

func (m *Manager) OnReplayStart(e ReplayStartEvent) {
	m.dispatch("OnReplayStart", func(p LifecyclePlugin) { p.OnReplayStart(e) })
}

func (m *Manager) OnReplayEnd(e ReplayEndEvent) {
	m.dispatch("OnReplayEnd", func(p LifecyclePlugin) { p.OnReplayEnd(e) })
}

func (m *Manager) OnDiffStart(e DiffStartEvent) {
	m.dispatch("OnDiffStart", func(p LifecyclePlugin) { p.OnDiffStart(e) })
}

func (m *Manager) OnDiffEnd(e DiffEndEvent) {
	m.dispatch("OnDiffEnd", func(p LifecyclePlugin) { p.OnDiffEnd(e) })
}
