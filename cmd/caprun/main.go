// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// The main entry of the caprun CLI tool; all it does is set up logging and
// then hand over to the caprun "root" command, which parses the CLI args and
// dispatches to the chosen (sub)command.

package main

import (
	"os"

	// Pull in the command packages defining sub-commands: they register
	// themselves in their init()s, but something needs to reference the
	// packages or they would never be linked in.
	"github.com/probeworks/caprun/cli/command"
	_ "github.com/probeworks/caprun/cli/command/run"

	_ "github.com/probeworks/caprun/cli/remote" // remote capture service streams

	log "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

func main() {
	f := new(prefixed.TextFormatter)
	f.DisableColors = true
	f.ForceFormatting = true
	f.FullTimestamp = true
	f.TimestampFormat = "15:04:05"
	log.SetFormatter(f)

	// Don't print the error here: cobra already rendered it, see also
	// https://github.com/spf13/cobra/issues/304
	if err := command.SetupCLI().Execute(); err != nil {
		os.Exit(1)
	}
}
