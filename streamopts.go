// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Defines the options common to all stream monitors of a session -- not that
// there are that many, but this way we make explicit which knobs apply to
// recording from remote capture services, as opposed to spawning local
// tools.

package caprun

import "time"

// StreamOptions defines connection options shared by all stream monitors of
// a capture session.
type StreamOptions struct {
	// BearerToken optionally specifies the bearer token to use when
	// connecting to a remote capture service.
	BearerToken string
	// Timeout limits the connection establishing phase, including the web
	// socket handshake phase. It defaults to DefaultStreamTimeout if left
	// zero.
	Timeout time.Duration
	// InsecureSkipVerify skips validation of the capture service's TLS
	// certificate. Danger zone.
	InsecureSkipVerify bool
}
