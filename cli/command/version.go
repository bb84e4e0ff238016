// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package command

import (
	"fmt"
	"strings"

	"github.com/probeworks/caprun"
	"github.com/probeworks/caprun/cli"
	"github.com/spf13/cobra"
	"github.com/thediveo/go-plugger/v3"
)

// Provides the “caprun version” command. The semantic version is the one
// defined for the main caprun package, so there's no separate version number
// for the caprun CLI command. In addition, the version command lists the
// registered command plugins.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version (with registered command plugins).",
	Run: func(cmd *cobra.Command, args []string) {
		semver := caprun.SemVersion
		for _, pluginsemver := range plugger.Group[cli.SemVer]().Symbols() {
			semver = pluginsemver()
			break
		}
		fmt.Printf("%s version %s (command plugins: %s)\n",
			cmd.Parent().Name(),
			semver,
			strings.Join(plugger.Group[cli.SetupCLI]().Plugins(), ", "))
	},
}

func init() {
	plugger.Group[cli.SetupCLI]().Register(
		VersionSetupCLI, plugger.WithPlugin("version"))
}

// VersionSetupCLI adds the “version” command.
func VersionSetupCLI(cmd *cobra.Command) {
	cmd.AddCommand(versionCmd)
}
