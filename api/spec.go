// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// This statically typed data model describes capture sessions as they are
// configured by users: the monitors observing a session, the foreground
// workload, and the overall session bounds. The same model doubles as the
// YAML schema of session configuration files, so a configuration written by
// one caprun version can be replayed by a later one.

package api

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Monitor kinds: how a monitor observes a session.
const (
	// MonitorExec monitors run an external tool (tcpdump, nload, ss, et
	// cetera) as a detached background process writing to an artifact file.
	// This is the default kind.
	MonitorExec = "exec"
	// MonitorStream monitors record the packet stream of a remote capture
	// service into an artifact file, instead of spawning a local process.
	MonitorStream = "stream"
)

// MonitorSpec describes a single background observer to run for the
// lifetime of a capture session.
type MonitorSpec struct {
	// Name of the monitor; it keys the monitor's outcome in the teardown
	// report and is the default stem of its artifact file name.
	Name string `json:"name" yaml:"name"`
	// Kind of monitor, either "exec" (the zero default) or "stream".
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
	// The external tool to run; only meaningful for exec monitors. The
	// command is looked up in PATH, it is never interpreted by a shell.
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	// Arguments passed verbatim to the tool.
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// OutputPath names the artifact file the monitor's combined output goes
	// to. Relative paths are resolved against the session directory; it
	// defaults to "<name>.log" for exec monitors and "<name>.pcapng" for
	// stream monitors.
	OutputPath string `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	// MaxDurationSeconds bounds the monitor's lifetime. Zero means "as long
	// as the session"; values beyond the session duration are capped to it.
	MaxDurationSeconds int `json:"max_duration_seconds,omitempty" yaml:"max_duration_seconds,omitempty"`
	// ServiceURL is the http(s) URL of the remote capture service endpoint
	// to record from; only meaningful for stream monitors.
	ServiceURL string `json:"service_url,omitempty" yaml:"service_url,omitempty"`
}

// WorkloadSpec describes the foreground task of a session, such as a
// scraping run. The workload's terminal status decides the session outcome.
type WorkloadSpec struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
}

// SessionConfig enumerates everything a capture session needs up-front:
// where artifacts go, how long the session may run, which monitors to start,
// and the workload to run. There is deliberately no implicit configuration
// through the current working directory or environment variables.
type SessionConfig struct {
	// Name of the session; together with a timestamp it forms the artifact
	// directory name.
	Name string `json:"name" yaml:"name"`
	// OutputRoot is the directory under which the session directory is
	// created.
	OutputRoot string `json:"output_root" yaml:"output_root"`
	// DurationSeconds bounds the whole session: any monitor or workload
	// still alive at the deadline gets terminated.
	DurationSeconds int `json:"duration_seconds" yaml:"duration_seconds"`
	// GraceSeconds is how long teardown waits for a termination signal to
	// take effect before force-killing; zero selects the default of 5s.
	GraceSeconds int `json:"grace_seconds,omitempty" yaml:"grace_seconds,omitempty"`
	// The background observers to run alongside the workload.
	Monitors []MonitorSpec `json:"monitors,omitempty" yaml:"monitors,omitempty"`
	// The foreground task; optional, a session may consist of monitors only.
	Workload *WorkloadSpec `json:"workload,omitempty" yaml:"workload,omitempty"`
}

// Duration returns the session duration bound.
func (c *SessionConfig) Duration() time.Duration {
	return time.Duration(c.DurationSeconds) * time.Second
}

// Grace returns the configured teardown grace period, or zero if the caller
// should fall back to the default.
func (c *SessionConfig) Grace() time.Duration {
	return time.Duration(c.GraceSeconds) * time.Second
}

// Validate checks a session configuration for the most blatant mistakes, so
// they surface before any directory gets created or process spawned.
func (c *SessionConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("session configuration lacks a name")
	}
	if c.OutputRoot == "" {
		return fmt.Errorf("session %q: no output root directory given", c.Name)
	}
	if c.DurationSeconds <= 0 {
		return fmt.Errorf("session %q: duration must be positive, got %ds",
			c.Name, c.DurationSeconds)
	}
	seen := map[string]bool{}
	for _, m := range c.Monitors {
		if m.Name == "" {
			return fmt.Errorf("session %q: monitor without a name", c.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("session %q: duplicate monitor name %q", c.Name, m.Name)
		}
		seen[m.Name] = true
		switch m.Kind {
		case "", MonitorExec:
			if m.Command == "" {
				return fmt.Errorf("monitor %q: no command given", m.Name)
			}
		case MonitorStream:
			if m.ServiceURL == "" {
				return fmt.Errorf("monitor %q: no capture service URL given", m.Name)
			}
		default:
			return fmt.Errorf("monitor %q: unknown kind %q", m.Name, m.Kind)
		}
		if m.MaxDurationSeconds < 0 {
			return fmt.Errorf("monitor %q: negative max duration", m.Name)
		}
	}
	if c.Workload != nil && c.Workload.Command == "" {
		return fmt.Errorf("session %q: workload without a command", c.Name)
	}
	return nil
}

// LoadSessionConfig reads and validates a session configuration from a YAML
// file.
func LoadSessionConfig(path string) (*SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read session configuration: %w", err)
	}
	cfg := &SessionConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("malformed session configuration %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
