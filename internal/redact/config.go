package redact

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of a redaction policy override file.
type FileConfig struct {
	Version         string   `yaml:"version"`
	Enabled         *bool    `yaml:"enabled"`
	Mask            string   `yaml:"mask"`
	SensitiveFields []string `yaml:"sensitive_fields"`
	SafeFields      []string `yaml:"safe_fields"`
}

// LoadFile reads a YAML redaction policy file and merges it onto the
// built-in defaults: fields listed in the file are added to (not
// replacing) the defaults, matching the "config layers on top of
// defaults" behavior used elsewhere in the policy stack.
func LoadFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("redact: read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Policy{}, fmt.Errorf("redact: parse config %s: %w", path, err)
	}
	return fc.applyTo(Default()), nil
}

func (fc FileConfig) applyTo(base Policy) Policy {
	if fc.Version != "" {
		base.Version = fc.Version
	}
	if fc.Enabled != nil {
		base.Enabled = *fc.Enabled
	}
	if fc.Mask != "" {
		base.Mask = fc.Mask
	}
	sensitive := cloneSet(base.SensitiveFields)
	for _, f := range fc.SensitiveFields {
		sensitive[lowerASCII(f)] = true
	}
	base.SensitiveFields = sensitive
	safe := cloneSet(base.SafeFields)
	for _, f := range fc.SafeFields {
		safe[lowerASCII(f)] = true
	}
	base.SafeFields = safe
	return base
}

func cloneSet(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Watcher holds a redaction Policy that can be atomically swapped when
// its backing config file changes on disk, so a long-lived capture
// session can pick up policy edits without restarting.
type Watcher struct {
	path    string
	current atomic.Value // Policy
	watcher *fsnotify.Watcher
	mu      sync.Mutex
	onError func(error)
}

// NewWatcher loads path and starts watching it for changes. onError, if
// non-nil, receives errors from reload attempts and from the underlying
// fsnotify watcher; failed reloads leave the previously loaded policy in
// effect.
func NewWatcher(path string, onError func(error)) (*Watcher, error) {
	policy, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("redact: create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("redact: watch %s: %w", path, err)
	}
	w := &Watcher{path: path, watcher: fw, onError: onError}
	w.current.Store(policy)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	policy, err := LoadFile(w.path)
	if err != nil {
		if w.onError != nil {
			w.onError(err)
		}
		return
	}
	w.current.Store(policy)
}

// Policy returns the currently active policy.
func (w *Watcher) Policy() Policy {
	return w.current.Load().(Policy)
}

// Close stops watching the config file.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
