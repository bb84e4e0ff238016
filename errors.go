// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Declares the error taxonomy of capture sessions. Only setup errors are
// fatal to a session; launch errors merely degrade it. Workload failures and
// monitors resisting termination are not errors in the Go sense at all: they
// are recorded as report data (see the api package) and never propagated.

package caprun

import "fmt"

// SetupError reports that the session artifact directory could not be
// created. It is the only fatal session error: nothing has been spawned yet
// when it occurs, so the caller can simply give up.
type SetupError struct {
	// Dir is the directory that could not be created.
	Dir string
	// Err is the underlying cause, usually a *fs.PathError.
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("cannot create session directory %q: %s", e.Dir, e.Err.Error())
}

func (e *SetupError) Unwrap() error { return e.Err }

// LaunchError reports that a monitor could not be started, typically because
// its underlying tool is not installed, or a remote capture service could
// not be reached. Launch errors are non-fatal: the session continues in
// degraded mode and records the monitor as LaunchFailed.
type LaunchError struct {
	// Monitor is the name of the monitor that failed to come up.
	Monitor string
	// Err is the underlying cause.
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("cannot launch monitor %q: %s", e.Monitor, e.Err.Error())
}

func (e *LaunchError) Unwrap() error { return e.Err }
