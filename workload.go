// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Runs the foreground workload of a capture session, bounded by the session
// deadline.

package caprun

import (
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/probeworks/caprun/api"
	log "github.com/sirupsen/logrus"
)

// RunWorkload runs the foreground task of the session, streaming its
// combined output into the workload log artifact. It blocks until the
// workload exits or the session deadline elapses, whichever comes first. A
// workload hitting the deadline is forcibly terminated and reported as
// TimedOut, which is a session outcome and not a workload failure.
//
// The returned status is also recorded for the teardown report. Per the
// session contract, monitors have been requested to start before the
// workload begins, and teardown only happens after the workload has reached
// a terminal status.
func (s *Session) RunWorkload(command string, args ...string) api.WorkloadStatus {
	s.m.Lock()
	switch s.state {
	case StateCreated, StateMonitorsStarting:
		s.state = StateWorkloadRunning
	default:
		s.m.Unlock()
		log.Errorf("session %q: cannot run workload in state %s", s.name, s.state)
		return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadFailed})
	}
	s.m.Unlock()

	path, err := s.tools.Lookup(command)
	if err != nil {
		log.Errorf("session %q: workload command %q not found: %s",
			s.name, command, err.Error())
		return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadNotFound})
	}
	out, err := os.OpenFile(filepath.Join(s.dir, WorkloadLogFile),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		log.Errorf("session %q: cannot create workload log: %s", s.name, err.Error())
		return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadFailed, ExitCode: -1})
	}

	cmd := exec.Command(path, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Stdin = nil
	// The workload also gets its own process group, so a deadline kill
	// reliably takes down the whole workload process tree.
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		out.Close()
		log.Errorf("session %q: cannot start workload: %s", s.name, err.Error())
		return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadFailed, ExitCode: -1})
	}
	log.Debugf("session %q: workload %s (pid %d) running...",
		s.name, path, cmd.Process.Pid)

	done := make(chan error, 1)
	go func() {
		defer out.Close()
		done <- cmd.Wait()
	}()

	select {
	case err = <-done:
		// Terminal status before the deadline.
	case <-time.After(time.Until(s.deadline)):
		// Deadline reached: forcibly terminate the workload's process
		// group, with the usual grace between asking and insisting.
		pid := cmd.Process.Pid
		log.Debugf("session %q: deadline reached, terminating workload (pid %d)",
			s.name, pid)
		signalGroup(pid, syscall.SIGTERM)
		select {
		case <-done:
		case <-time.After(s.grace):
			log.Errorf("session %q: workload (pid %d) ignored SIGTERM; force-killing",
				s.name, pid)
			signalGroup(pid, syscall.SIGKILL)
			<-done
		}
		return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadTimedOut})
	}

	if err != nil {
		if exiterr, ok := err.(*exec.ExitError); ok {
			log.Debugf("session %q: workload failed with exit code %d",
				s.name, exiterr.ExitCode())
			return s.setWorkloadStatus(api.WorkloadStatus{
				State:    api.WorkloadFailed,
				ExitCode: exiterr.ExitCode(),
			})
		}
		log.Errorf("session %q: workload: %s", s.name, err.Error())
		return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadFailed, ExitCode: -1})
	}
	log.Debugf("session %q: workload exited cleanly", s.name)
	return s.setWorkloadStatus(api.WorkloadStatus{State: api.WorkloadExited})
}

// setWorkloadStatus records the workload's terminal status for the teardown
// report and passes it through.
func (s *Session) setWorkloadStatus(status api.WorkloadStatus) api.WorkloadStatus {
	s.m.Lock()
	defer s.m.Unlock()
	s.workload = &status
	return status
}
