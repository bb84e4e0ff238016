// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Implements the stream monitor kind: instead of spawning a local tool, a
// stream monitor records the packet stream of a remote capture service into
// a session artifact file.

package caprun

import (
	"crypto/tls"
	"errors"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/probeworks/caprun/api"
	"github.com/probeworks/caprun/websock"
	log "github.com/sirupsen/logrus"
)

// streamMonitor is the stream implementation of the Monitor interface: a
// websocket connection to a remote capture service, whose binary messages
// get recorded into an artifact file.
type streamMonitor struct {
	name string
	// The (wrapped) websocket for the capture stream.
	sock *websock.StreamSocket
	m    sync.Mutex
	// Are we in the process of stopping?
	stopping bool
	outcome  api.MonitorOutcome
	// Signals that the capture stream finally has ended.
	done chan struct{}
}

// startStreamMonitor connects to the capture service named in the monitor
// spec and starts recording its packet stream into the artifact file. A
// failing dial surfaces as a *LaunchError, so the session degrades in
// exactly the same way as for a missing local tool.
func startStreamMonitor(spec api.MonitorSpec, outpath string, opts *StreamOptions) (*streamMonitor, error) {
	if opts == nil {
		opts = &StreamOptions{}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultStreamTimeout
	}
	svcurl, err := url.Parse(spec.ServiceURL)
	if err != nil {
		return nil, &LaunchError{Monitor: spec.Name, Err: err}
	}
	// Capture services are addressed by their http(s) URL; map it onto the
	// corresponding websocket scheme.
	switch svcurl.Scheme {
	case "http":
		svcurl.Scheme = "ws"
	case "https":
		svcurl.Scheme = "wss"
	case "ws", "wss":
		// ...already fine.
	default:
		return nil, &LaunchError{
			Monitor: spec.Name,
			Err:     errors.New("capture service URL must use http(s) or ws(s) scheme"),
		}
	}
	headers := http.Header{}
	if opts.BearerToken != "" {
		headers.Set("Authorization", "Bearer "+opts.BearerToken)
	}
	log.Debugf("monitor %q connecting to capture service %q, time limit %s",
		spec.Name, svcurl.String(), timeout)
	wsd := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
	}
	if opts.InsecureSkipVerify && svcurl.Scheme == "wss" {
		wsd.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	wscon, _, err := wsd.Dial(svcurl.String(), headers)
	if err != nil {
		return nil, &LaunchError{Monitor: spec.Name, Err: err}
	}
	out, err := os.OpenFile(outpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		wscon.Close()
		return nil, &LaunchError{Monitor: spec.Name, Err: err}
	}
	sm := &streamMonitor{
		name: spec.Name,
		sock: websock.New(wscon),
		done: make(chan struct{}),
	}
	// Recording the incoming capture data is done in a separate go routine.
	// Beyond "just" connecting the stream to the artifact file, we need to
	// handle either the websocket or the file breaking.
	go func() {
		defer close(sm.done)
		defer out.Close()
		sinkBroken := false
		for {
			data, err := sm.sock.Read()
			if err != nil {
				log.Debugf("monitor %q capture stream ended: %s", sm.name, err.Error())
				return
			}
			if sinkBroken {
				// Keep reading so the close control message interaction can
				// still proceed, but drop the capture data.
				continue
			}
			if _, err := out.Write(data); err != nil {
				log.Errorf("monitor %q artifact file failed: %s", sm.name, err.Error())
				sinkBroken = true
				go sm.sock.Close()
			}
		}
	}()
	log.Debugf("monitor %q recording capture stream -> %q", spec.Name, outpath)
	return sm, nil
}

func (sm *streamMonitor) Name() string { return sm.name }

// Stop the capture stream recording in an orderly manner and wait for it to
// terminate.
func (sm *streamMonitor) Stop() {
	sm.terminate(false)
}

// Wait for the capture stream recording to terminate, without initiating it.
func (sm *streamMonitor) Wait() {
	<-sm.done
}

// StopAfter waits for the capture stream recording to terminate and
// terminates it after the specified duration if necessary.
func (sm *streamMonitor) StopAfter(d time.Duration) {
	select {
	case <-sm.done:
		// A terminate underway owns the outcome; see the exec monitor for
		// the same stopping check.
		sm.m.Lock()
		stopping := sm.stopping
		sm.m.Unlock()
		if stopping {
			return
		}
		sm.record(api.AlreadyExited, "")
	case <-time.After(d):
		sm.terminate(true)
	}
}

// Outcome reports how the recording ended.
func (sm *streamMonitor) Outcome() api.MonitorOutcome {
	sm.m.Lock()
	defer sm.m.Unlock()
	if sm.outcome.Outcome == "" {
		select {
		case <-sm.done:
			return api.MonitorOutcome{Outcome: api.AlreadyExited}
		default:
		}
	}
	return sm.outcome
}

// terminate gracefully closes the capture stream. There is no force-kill
// escalation here: the graceful websocket close is itself bounded, so a
// hanging capture service cannot stall teardown beyond that bound.
func (sm *streamMonitor) terminate(expired bool) {
	sm.m.Lock()
	if sm.stopping {
		sm.m.Unlock()
		sm.Wait()
		return
	}
	sm.stopping = true
	sm.m.Unlock()
	select {
	case <-sm.done:
		sm.record(api.AlreadyExited, "")
		return
	default:
	}
	sm.sock.Close()
	<-sm.done
	if expired {
		sm.record(api.TimedOutKilled, "")
		return
	}
	sm.record(api.ExitedCleanly, "")
}

func (sm *streamMonitor) record(o api.Outcome, detail string) {
	sm.m.Lock()
	defer sm.m.Unlock()
	if sm.outcome.Outcome != "" {
		return
	}
	sm.outcome = api.MonitorOutcome{Outcome: o, Error: detail}
}
