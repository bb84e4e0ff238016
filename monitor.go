// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Declares the monitor handle interface as well as the exec monitor kind,
// which runs an external observation tool as a detached background process.

package caprun

import (
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/probeworks/caprun/api"
	log "github.com/sirupsen/logrus"
)

// Monitor gives control over an individual background observer of a capture
// session. Monitor handles are owned by their session; no monitor outlives
// its session's teardown.
type Monitor interface {
	// Name of the monitor, as configured in its spec.
	Name() string
	// Stop this monitor in an orderly manner. This operation will block
	// until the monitor has finally terminated. It is also idempotent.
	Stop()
	// Wait for the monitor to terminate, but do not initiate the
	// termination.
	Wait()
	// StopAfter waits the specified duration for the monitor to terminate,
	// and terminates it after the duration if necessary. A monitor stopped
	// this way reports TimedOutKilled instead of ExitedCleanly.
	StopAfter(d time.Duration)
	// Outcome reports how the monitor ended; it is only meaningful after
	// the monitor has terminated.
	Outcome() api.MonitorOutcome
}

// execMonitor is the exec implementation of the Monitor interface: an
// external tool in its own process group, writing combined output to an
// artifact file.
type execMonitor struct {
	name string
	cmd  *exec.Cmd
	// grace bounds the wait between SIGTERM and SIGKILL.
	grace time.Duration
	m     sync.Mutex // synchronize stop handling and outcome access
	// Are we in the process of stopping?
	stopping bool
	outcome  api.MonitorOutcome
	// Signals that the monitor process has been reaped, by closing (sic!)
	// this channel.
	done chan struct{}
}

// startExecMonitor launches the tool named in the monitor spec as a detached
// background process. The tool path is resolved through the session's tool
// cache; a missing tool or a failing spawn surfaces as a *LaunchError.
func startExecMonitor(spec api.MonitorSpec, dir, outpath string, grace time.Duration, tools *ToolCache) (*execMonitor, error) {
	toolpath, err := tools.Lookup(spec.Command)
	if err != nil {
		return nil, &LaunchError{Monitor: spec.Name, Err: err}
	}
	out, err := os.OpenFile(outpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return nil, &LaunchError{Monitor: spec.Name, Err: err}
	}
	cmd := exec.Command(toolpath, spec.Args...)
	// Monitor tools run inside the session directory, so capture files they
	// write themselves (think tcpdump -w) become session artifacts instead
	// of cluttering whatever the orchestrator's working directory is.
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	// Monitors must not contend for the orchestrator's stdin; the workload
	// doesn't get it either.
	cmd.Stdin = nil
	// Each monitor gets its own process group, so that termination reliably
	// reaches any children the tool forks, and so an unexpected orchestrator
	// death cannot leak monitors (on Linux).
	cmd.SysProcAttr = sysProcAttr()
	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, &LaunchError{Monitor: spec.Name, Err: err}
	}
	log.Debugf("monitor %q started: %s (pid %d) -> %q",
		spec.Name, toolpath, cmd.Process.Pid, outpath)
	em := &execMonitor{
		name:  spec.Name,
		cmd:   cmd,
		grace: grace,
		done:  make(chan struct{}),
	}
	// Reaping is done in a separate go routine, so that Stop and StopAfter
	// only ever need to watch the done channel.
	go func() {
		defer close(em.done)
		defer out.Close()
		if err := cmd.Wait(); err != nil {
			// Expected for monitors going down on our termination signal.
			log.Debugf("monitor %q: %s", em.name, err.Error())
		}
	}()
	return em, nil
}

func (em *execMonitor) Name() string { return em.name }

// Stop the monitor and wait for it to terminate. See also Wait() for the
// usecase where a go routine needs to wait for the monitor to terminate, but
// will not initiate the termination itself.
func (em *execMonitor) Stop() {
	em.terminate(false)
}

// Wait for the monitor to terminate, without initiating it. See also Stop().
func (em *execMonitor) Wait() {
	<-em.done
}

// StopAfter waits for the monitor to terminate and terminates it after the
// specified duration if necessary.
func (em *execMonitor) StopAfter(d time.Duration) {
	select {
	case <-em.done:
		// When a terminate is underway it owns the outcome: it set stopping
		// before signalling, so a monitor going down on teardown's request
		// must not race to get misreported as an early exit here.
		em.m.Lock()
		stopping := em.stopping
		em.m.Unlock()
		if stopping {
			return
		}
		em.record(api.AlreadyExited, "")
	case <-time.After(d):
		em.terminate(true)
	}
}

// Outcome reports how the monitor ended.
func (em *execMonitor) Outcome() api.MonitorOutcome {
	em.m.Lock()
	defer em.m.Unlock()
	if em.outcome.Outcome == "" {
		// Nobody ever had to stop this monitor, it just went away on its
		// own before teardown came around.
		select {
		case <-em.done:
			return api.MonitorOutcome{Outcome: api.AlreadyExited}
		default:
		}
	}
	return em.outcome
}

// terminate asks the monitor's process group to terminate, escalating to a
// force-kill after the grace period. expired tells whether termination was
// triggered by the monitor's lifetime bound, as opposed to session teardown;
// it decides between the TimedOutKilled and ExitedCleanly outcomes.
func (em *execMonitor) terminate(expired bool) {
	em.m.Lock()
	if em.stopping {
		em.m.Unlock()
		// Someone else is already stopping this monitor; just wait for the
		// stop to complete, making terminate idempotent.
		em.Wait()
		return
	}
	em.stopping = true
	em.m.Unlock()
	select {
	case <-em.done:
		em.record(api.AlreadyExited, "")
		return
	default:
	}
	pid := em.cmd.Process.Pid
	log.Debugf("asking monitor %q (pid %d) to terminate...", em.name, pid)
	signalGroup(pid, syscall.SIGTERM)
	select {
	case <-em.done:
		if expired {
			em.record(api.TimedOutKilled, "")
		} else {
			em.record(api.ExitedCleanly, "")
		}
	case <-time.After(em.grace):
		// The monitor sat out the whole grace period; no more mercy.
		log.Errorf("monitor %q (pid %d) ignored SIGTERM for %s; force-killing",
			em.name, pid, em.grace)
		signalGroup(pid, syscall.SIGKILL)
		<-em.done
		em.record(api.ForceKilled, "ignored termination signal")
	}
}

// record sets the monitor outcome, unless one has already been recorded.
func (em *execMonitor) record(o api.Outcome, detail string) {
	em.m.Lock()
	defer em.m.Unlock()
	if em.outcome.Outcome != "" {
		return
	}
	em.outcome = api.MonitorOutcome{Outcome: o, Error: detail}
}

// signalGroup sends the signal to the whole process group, so it also
// reaches any children the tool might have forked.
func signalGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil && err != syscall.ESRCH {
		log.Debugf("signalling process group %d: %s", pid, err.Error())
	}
}
