// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Implements the capture session lifecycle: directory setup, monitor
// launching, unconditional teardown with per-monitor outcomes, and artifact
// post-processing.

package caprun

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/probeworks/caprun/api"
	"github.com/probeworks/caprun/transform"
	log "github.com/sirupsen/logrus"
)

// State of a capture session. Sessions only ever move forward through their
// states and are never reused.
type State string

const (
	// StateCreated: the session directory exists, nothing has been spawned.
	StateCreated State = "Created"
	// StateMonitorsStarting: monitors are being launched; some launches may
	// fail without keeping the session from proceeding (degraded mode).
	StateMonitorsStarting State = "MonitorsStarting"
	// StateWorkloadRunning: the foreground workload runs; the monitors
	// observe.
	StateWorkloadRunning State = "WorkloadRunning"
	// StateStopping: unconditional teardown, reached regardless of the
	// workload's outcome.
	StateStopping State = "Stopping"
	// StateCompleted: terminal; the teardown report has been written.
	StateCompleted State = "Completed"
)

// TeardownReportFile is the name of the report artifact each completed
// session leaves in its directory.
const TeardownReportFile = "teardown_report.json"

// WorkloadLogFile is the artifact receiving the workload's combined output.
const WorkloadLogFile = "workload_stdout.log"

// launchFailuresFile records monitors that never came up, so the degraded
// mode of a session is visible in its artifacts, not just in the logs.
const launchFailuresFile = "launch_failures.log"

// Session is the unit of orchestration: one workload, its monitors, one
// exclusively owned artifact directory, one duration bound. The orchestrator
// is single-threaded cooperative: all Session methods are meant to be called
// from one goroutine, coordination with the monitors happens purely through
// their handles.
type Session struct {
	name     string
	dir      string
	deadline time.Time
	grace    time.Duration
	sopts    *StreamOptions
	tools    ToolCache

	m        sync.Mutex
	state    State
	monitors []Monitor
	// outcomes accumulates launch failures while the session runs and the
	// termination outcomes during teardown.
	outcomes map[string]api.MonitorOutcome
	workload *api.WorkloadStatus
	started  time.Time
	report   *api.TeardownReport
}

// NewSession creates the artifact directory for the named session and
// returns a session handle with an empty monitor set. The session-wide
// deadline starts ticking now. A directory that cannot be created is the
// only fatal condition, reported as a *SetupError; nothing has been spawned
// at that point.
func NewSession(cfg *api.SessionConfig, sopts *StreamOptions) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &SetupError{Dir: cfg.OutputRoot, Err: err}
	}
	if err := os.MkdirAll(cfg.OutputRoot, 0755); err != nil {
		return nil, &SetupError{Dir: cfg.OutputRoot, Err: err}
	}
	// Timestamped naming keeps concurrent sessions from targetting the same
	// directory; the rare same-second collision gets a numeric suffix.
	stamp := time.Now().Format("20060102-150405")
	dir := filepath.Join(cfg.OutputRoot, cfg.Name+"_"+stamp)
	var err error
	for i := 0; ; i++ {
		try := dir
		if i > 0 {
			try = fmt.Sprintf("%s-%d", dir, i)
		}
		err = os.Mkdir(try, 0755)
		if err == nil {
			dir = try
			break
		}
		if !os.IsExist(err) || i >= 100 {
			return nil, &SetupError{Dir: try, Err: err}
		}
	}
	grace := cfg.Grace()
	if grace == 0 {
		grace = DefaultGracePeriod
	}
	log.Debugf("session %q owns %q, duration %s, grace %s",
		cfg.Name, dir, cfg.Duration(), grace)
	return &Session{
		name:     cfg.Name,
		dir:      dir,
		deadline: time.Now().Add(cfg.Duration()),
		grace:    grace,
		sopts:    sopts,
		state:    StateCreated,
		outcomes: map[string]api.MonitorOutcome{},
		started:  time.Now(),
	}, nil
}

// Name of the session, as configured.
func (s *Session) Name() string { return s.name }

// Dir is the artifact directory exclusively owned by this session. The
// directory persists after the session has completed.
func (s *Session) Dir() string { return s.dir }

// Deadline is the session-wide point in time at which any still-running
// monitor or workload gets terminated.
func (s *Session) Deadline() time.Time { return s.deadline }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.m.Lock()
	defer s.m.Unlock()
	return s.state
}

// Tools exposes the session's tool cache, so callers can probe availability
// of capture tooling up-front.
func (s *Session) Tools() *ToolCache { return &s.tools }

// AddMonitor launches the background observer described by the spec,
// detached into its own process group (exec monitors) or as a capture
// stream recording (stream monitors). The monitor's lifetime is bounded by
// its spec'ed max duration, capped to the remaining session duration.
//
// A *LaunchError is non-fatal by contract: the caller may simply continue
// without that monitor. The absence is recorded both for the teardown
// report and in the session's launch failures artifact.
func (s *Session) AddMonitor(spec api.MonitorSpec) (Monitor, error) {
	s.m.Lock()
	switch s.state {
	case StateCreated, StateMonitorsStarting:
		s.state = StateMonitorsStarting
	default:
		s.m.Unlock()
		return nil, fmt.Errorf("session %q: cannot add monitor %q in state %s",
			s.name, spec.Name, s.state)
	}
	s.m.Unlock()

	var mon Monitor
	var err error
	switch spec.Kind {
	case "", api.MonitorExec:
		mon, err = startExecMonitor(spec, s.dir, s.artifactPath(spec, ".log"), s.grace, &s.tools)
	case api.MonitorStream:
		mon, err = startStreamMonitor(spec, s.artifactPath(spec, ".pcapng"), s.sopts)
	default:
		err = &LaunchError{Monitor: spec.Name,
			Err: fmt.Errorf("unknown monitor kind %q", spec.Kind)}
	}
	if err != nil {
		log.Errorf("session %q degraded: %s", s.name, err.Error())
		s.recordLaunchFailure(spec.Name, err)
		return nil, err
	}

	// Bind the monitor's lifetime to its own bound and the session deadline,
	// whichever ends first.
	lifetime := time.Until(s.deadline)
	if max := time.Duration(spec.MaxDurationSeconds) * time.Second; max > 0 && max < lifetime {
		lifetime = max
	}
	go mon.StopAfter(lifetime)

	s.m.Lock()
	s.monitors = append(s.monitors, mon)
	s.m.Unlock()
	return mon, nil
}

// artifactPath resolves the monitor spec's output path against the session
// directory, defaulting to the monitor name plus the given extension.
func (s *Session) artifactPath(spec api.MonitorSpec, ext string) string {
	out := spec.OutputPath
	if out == "" {
		out = spec.Name + ext
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(s.dir, out)
	}
	return out
}

// recordLaunchFailure notes a monitor that never came up, both for the
// teardown report and as a line in the launch failures artifact.
func (s *Session) recordLaunchFailure(name string, err error) {
	s.m.Lock()
	s.outcomes[name] = api.MonitorOutcome{
		Outcome: api.LaunchFailed,
		Error:   err.Error(),
	}
	s.m.Unlock()
	f, ferr := os.OpenFile(filepath.Join(s.dir, launchFailuresFile),
		os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if ferr != nil {
		log.Errorf("cannot record launch failure of %q: %s", name, ferr.Error())
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s: %s\n", time.Now().Format(time.RFC3339), name, err.Error())
}

// AwaitDeadline blocks until the session deadline has elapsed. It is what a
// monitors-only session does instead of running a workload.
func (s *Session) AwaitDeadline() {
	if d := time.Until(s.deadline); d > 0 {
		time.Sleep(d)
	}
}

// Stop tears the session down: every still-running monitor is asked to
// terminate, waiting up to the grace period before force-killing, and the
// per-monitor outcomes are collected into the teardown report. Stop never
// fails and is idempotent; a monitor resisting termination is recorded, not
// propagated. When Stop returns, no monitor started by this session is
// alive, and the report has been persisted into the session directory.
func (s *Session) Stop() *api.TeardownReport {
	s.m.Lock()
	if s.report != nil {
		// Teardown already done; nothing left to stop, no new side effects.
		report := s.report
		s.m.Unlock()
		return report
	}
	s.state = StateStopping
	monitors := s.monitors
	s.m.Unlock()

	log.Debugf("session %q stopping %d monitor(s)...", s.name, len(monitors))
	for _, mon := range monitors {
		mon.Stop()
		outcome := mon.Outcome()
		log.Debugf("monitor %q: %s", mon.Name(), outcome.Outcome)
		s.m.Lock()
		s.outcomes[mon.Name()] = outcome
		s.m.Unlock()
	}

	s.m.Lock()
	report := &api.TeardownReport{
		Session:  s.name,
		Started:  s.started,
		Finished: time.Now(),
		Workload: s.workload,
		Monitors: s.outcomes,
	}
	s.report = report
	s.state = StateCompleted
	s.m.Unlock()

	if err := writeReport(filepath.Join(s.dir, TeardownReportFile), report); err != nil {
		// Still a completed session: the report is returned to the caller,
		// it just couldn't be persisted.
		log.Errorf("session %q: cannot persist teardown report: %s", s.name, err.Error())
	}
	return report
}

// Postprocess applies the given file-to-file transforms to the session's
// artifacts. Each transform is independent: a missing input file or a
// failing transform is logged and skipped, it never aborts the remaining
// transforms, and it never fails the session.
func (s *Session) Postprocess(transforms ...transform.Transform) {
	for _, t := range transforms {
		if err := t.Run(s.dir); err != nil {
			log.Errorf("session %q: transform %q skipped: %s", s.name, t.Name, err.Error())
			continue
		}
		log.Debugf("session %q: transform %q done", s.name, t.Name)
	}
}

func writeReport(path string, report *api.TeardownReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
