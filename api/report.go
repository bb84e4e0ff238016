// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// This statically typed data model matches the JSON schema of the
// "teardown_report.json" artifact every completed capture session leaves
// behind: per-monitor termination outcomes plus the terminal status of the
// foreground workload. The report is the single place where a later reader
// can tell how degraded a session ran.

package api

import "time"

// Outcome describes how an individual monitor ended, as observed during
// session teardown.
type Outcome string

const (
	// ExitedCleanly: the monitor terminated within the grace period after
	// being asked to.
	ExitedCleanly Outcome = "ExitedCleanly"
	// TimedOutKilled: the monitor's lifetime bound elapsed and it went down
	// on the resulting termination signal.
	TimedOutKilled Outcome = "TimedOutKilled"
	// ForceKilled: the monitor ignored the termination signal for the whole
	// grace period and had to be force-killed.
	ForceKilled Outcome = "ForceKilled"
	// AlreadyExited: the monitor was already gone before teardown asked it
	// to terminate (crash, or a tool that simply finished early).
	AlreadyExited Outcome = "AlreadyExited"
	// LaunchFailed: the monitor never came up, typically because its tool
	// isn't installed.
	LaunchFailed Outcome = "LaunchFailed"
)

// WorkloadState is the terminal state of a session's foreground workload.
type WorkloadState string

const (
	// WorkloadExited: the workload ran to completion with exit code 0.
	WorkloadExited WorkloadState = "ExitedCleanly"
	// WorkloadFailed: the workload exited non-zero; this is a session
	// outcome, not an orchestrator failure.
	WorkloadFailed WorkloadState = "Failed"
	// WorkloadTimedOut: the session deadline elapsed first and the workload
	// was terminated; distinguished from failure for reporting purposes.
	WorkloadTimedOut WorkloadState = "TimedOut"
	// WorkloadNotFound: the workload command isn't installed; the only
	// workload state that makes the whole session report as failed.
	WorkloadNotFound WorkloadState = "NotFound"
)

// WorkloadStatus is the terminal status of the foreground workload.
type WorkloadStatus struct {
	State WorkloadState `json:"state"`
	// ExitCode of the workload process; only meaningful in state "Failed".
	ExitCode int `json:"exit_code,omitempty"`
}

// TimedOut returns true if the workload hit the session deadline.
func (ws WorkloadStatus) TimedOut() bool { return ws.State == WorkloadTimedOut }

// MonitorOutcome records how a single monitor ended, with an optional
// diagnostic detail for the degraded outcomes.
type MonitorOutcome struct {
	Outcome Outcome `json:"outcome"`
	// Error carries the launch or termination error message, if any.
	Error string `json:"error,omitempty"`
}

// TeardownReport is persisted into the session directory when a session
// reaches its terminal state. Partial failures of individual monitors are
// recorded here instead of being propagated as session failures.
type TeardownReport struct {
	// Session name, as configured.
	Session string `json:"session"`
	// Started is when the session directory was created.
	Started time.Time `json:"started"`
	// Finished is when teardown completed.
	Finished time.Time `json:"finished"`
	// Workload status; nil when the session ran without a workload.
	Workload *WorkloadStatus `json:"workload,omitempty"`
	// Monitors maps each monitor name to its termination outcome. Monitors
	// that failed to launch appear here as LaunchFailed.
	Monitors map[string]MonitorOutcome `json:"monitors"`
}
