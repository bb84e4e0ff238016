// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package cli

import (
	"github.com/probeworks/caprun"
	"github.com/spf13/cobra"
)

// SetupCLI defines an exposed plugin symbol type for adding “things” to a
// cobra root command (the caprun root command in particular).
type SetupCLI func(*cobra.Command)

// CommandExamples defines an exposed symbol with CLI examples, indexed by a
// particular (sub) command, namely: “run”, “report”, and “tools” at this
// time.
type CommandExamples func() map[string]string

// BeforeCommand defines an exposed plugin symbol type for running checks
// after the command line args have been processed and before running the
// (choosen) command.
type BeforeCommand func(*cobra.Command) error

// NewStreamOptions defines an exposed plugin symbol type for returning the
// stream monitor connection options based on the CLI args. If a registered
// plugin isn't responsible, it must return nil options; the first non-nil
// options win.
type NewStreamOptions func() *caprun.StreamOptions

// SemVer defines an exposed plugin symbol type for returning (overriding)
// the CLI binary's semantic version. The first plugin will win.
type SemVer func() string
