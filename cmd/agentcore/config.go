// Package main provides the agentcore demo CLI: a runnable turn loop wiring
// the parallel tool executor, sandbox, context compactor, and render gate
// into one cobra command, configured from a YAML file.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crystalyse/agentcore/internal/compaction"
	"github.com/crystalyse/agentcore/internal/executor"
	"github.com/crystalyse/agentcore/internal/rendergate"
	"github.com/crystalyse/agentcore/internal/sandbox"
)

// Config is the demo CLI's whole configuration surface. The library
// packages under internal/ never read files or environment themselves;
// this struct and LoadConfig are the only place that happens.
type Config struct {
	Workspace string `yaml:"workspace"`

	Executor struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"executor"`

	Sandbox struct {
		Level         string   `yaml:"level"`
		WritableRoots []string `yaml:"writable_roots"`
		NetworkAccess bool     `yaml:"network_access"`
		IncludeTmp    bool     `yaml:"include_tmp"`
	} `yaml:"sandbox"`

	Compaction struct {
		MaxTokens        int     `yaml:"max_tokens"`
		Threshold        float64 `yaml:"threshold"`
		KeepRecent       int     `yaml:"keep_recent"`
		SummaryMaxTokens int     `yaml:"summary_max_tokens"`
	} `yaml:"compaction"`

	RenderGate struct {
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"render_gate"`

	Telemetry struct {
		Namespace string `yaml:"namespace"`
	} `yaml:"telemetry"`

	Tracing struct {
		// Endpoint is the OTLP collector endpoint (e.g. "localhost:4317").
		// Empty disables export; spans are still created in-process.
		Endpoint       string  `yaml:"endpoint"`
		SamplingRate   float64 `yaml:"sampling_rate"`
		EnableInsecure bool    `yaml:"enable_insecure"`
	} `yaml:"tracing"`
}

// DefaultConfig returns the suggested configuration, mirroring each
// component's own Default*Config() so a zero-value file still produces a
// fully workable Driver.
func DefaultConfig() Config {
	var cfg Config
	cfg.Workspace = "."
	cfg.Executor.TimeoutSeconds = int(executor.DefaultTimeout.Seconds())
	cfg.Sandbox.Level = string(sandbox.LevelWorkspace)
	cfg.Sandbox.IncludeTmp = true
	cfg.Compaction.MaxTokens = compaction.DefaultMaxTokens
	cfg.Compaction.Threshold = compaction.DefaultThreshold
	cfg.Compaction.KeepRecent = compaction.DefaultKeepRecent
	cfg.Compaction.SummaryMaxTokens = compaction.DefaultSummaryMaxTokens
	cfg.RenderGate.Tolerance = rendergate.DefaultTolerance
	cfg.Telemetry.Namespace = "agentcore"
	cfg.Tracing.SamplingRate = 1.0
	return cfg
}

// LoadConfig reads path, expands environment variables, and decodes it over
// DefaultConfig with unknown-field rejection, so a typo'd key fails fast
// instead of silently falling back to its default.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) sandboxPolicy() sandbox.Policy {
	return sandbox.Policy{
		Level:         sandbox.Level(c.Sandbox.Level),
		WritableRoots: c.Sandbox.WritableRoots,
		NetworkAccess: c.Sandbox.NetworkAccess,
		IncludeTmp:    c.Sandbox.IncludeTmp,
		IncludeTmpDir: true,
	}
}
