// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package caprun

import "time"

const (
	// DefaultGracePeriod is how long teardown waits between politely asking
	// a monitor or workload to terminate and force-killing it.
	DefaultGracePeriod = 5 * time.Second

	// DefaultStreamTimeout specifies the time limit for establishing a
	// stream connection to a remote capture service.
	DefaultStreamTimeout = 30 * time.Second
)
