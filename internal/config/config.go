// Package config loads ReplayKit's on-disk configuration: interception
// policy, redaction policy, and replay defaults, layered under whatever
// the CLI flags for a given invocation specify.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/replaykit/replaykit/internal/capture"
	"github.com/replaykit/replaykit/internal/replay"
)

// Config is the top-level shape of replaykit.yaml.
type Config struct {
	Policy struct {
		AllowModel        bool     `yaml:"allow_model"`
		AllowTool         bool     `yaml:"allow_tool"`
		AllowHTTP         bool     `yaml:"allow_http"`
		AllowedHosts      []string `yaml:"allowed_hosts"`
		BlockedHosts      []string `yaml:"blocked_hosts"`
		CaptureHTTPBodies bool     `yaml:"capture_http_bodies"`
		AllowExpression   string   `yaml:"allow_expression"`
	} `yaml:"policy"`

	Redaction struct {
		ConfigPath string `yaml:"config_path"`
	} `yaml:"redaction"`

	Replay struct {
		Seed           int64  `yaml:"seed"`
		FixedClock     string `yaml:"fixed_clock"`
		Nondeterminism string `yaml:"nondeterminism"`
	} `yaml:"replay"`

	SnapshotsDir string `yaml:"snapshots_dir"`
}

// Default returns a Config matching capture.DefaultPolicy and a warn-mode
// replay configuration, used when no config file is present.
func Default() Config {
	var c Config
	c.Policy.AllowModel = true
	c.Policy.AllowTool = true
	c.Policy.AllowHTTP = false
	c.Replay.Nondeterminism = string(replay.NondeterminismWarn)
	c.SnapshotsDir = ".replaykit/snapshots"
	return c
}

// Load reads a YAML config file at path, layered on top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// CapturePolicy converts the config's policy section into a
// capture.Policy.
func (c Config) CapturePolicy() capture.Policy {
	return capture.Policy{
		AllowModel:        c.Policy.AllowModel,
		AllowTool:         c.Policy.AllowTool,
		AllowHTTP:         c.Policy.AllowHTTP,
		AllowedHosts:      c.Policy.AllowedHosts,
		BlockedHosts:      c.Policy.BlockedHosts,
		CaptureHTTPBodies: c.Policy.CaptureHTTPBodies,
		AllowExpression:   c.Policy.AllowExpression,
	}
}

// ReplayConfig converts the config's replay section into a replay.Config.
func (c Config) ReplayConfig() replay.Config {
	return replay.Config{
		Seed:           c.Replay.Seed,
		FixedClock:     c.Replay.FixedClock,
		Nondeterminism: replay.NondeterminismMode(c.Replay.Nondeterminism),
	}
}
