// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Implements the caprun "root" command with its global CLI flags.
// Additionally gathers mutually exclusive flag groups from the annotations
// the plugins put on their flags, so individual commands do not need to
// wire these up themselves.

package command

import (
	"github.com/probeworks/caprun/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/go-plugger/v3"
	"golang.org/x/exp/slices"
)

// Flag annotation for grouping mutually exclusive flags. Due to the
// open-ended plugin architecture of caprun we cannot directly use cobra's
// MarkFlagsMutuallyExclusive in plugins, but instead plugins need to
// annotate their flags and we then gather the groups with their flag
// members in order to issue MarkFlagsMutuallyExclusive as necessary.
const MutualFlagGroupAnnotation = "mutually-exclusive-group"

// SessionSpecGroup is the name of an annotation value for flags that are
// mutually exclusive ways of specifying the session's monitor set.
const SessionSpecGroup = "sessionspec"

// OutputRoot specifies the directory under which session artifact
// directories get created.
var OutputRoot string

// rootCmd represents the Cobra "root" command thus the caprun CLI itself.
var rootCmd = &cobra.Command{
	Use:   "caprun",
	Short: "Run network-diagnostic monitors around a bounded workload",
	Long: `caprun is a CLI tool for running capture sessions: it launches a set of
time-bounded background monitors (tcpdump, tshark, nload, ss, or a remote
capture service stream) around a bounded foreground workload, tears
everything down when the workload ends or the session deadline elapses, and
collects the artifacts plus a teardown report into a timestamped directory.`,
	// See: https://github.com/spf13/cobra/issues/340
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Run the registered before-the-command plugins
		for _, beforeCmd := range plugger.Group[cli.BeforeCommand]().Symbols() {
			if err := beforeCmd(cmd); err != nil {
				return err
			}
		}
		return nil
	},
}

// SetupCLI registers the global ("persistent") CLI flags, as well as the
// (sub)commands. The individual commands are registered via a
// plugin-mechanism.
func SetupCLI() *cobra.Command {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&OutputRoot, "output-root", "artifacts",
		"Directory under which session artifact directories are created")

	// Call registered plugins in order to add further CLI args as well as
	// commands to the root command (or below).
	for _, setupCLI := range plugger.Group[cli.SetupCLI]().Symbols() {
		setupCLI(rootCmd)
	}
	// Set groups of mutually exclusive flags as annotated.
	mutuallyExclusives(rootCmd)
	// Fill in/expand command example sections, where additional command
	// examples are available.
	for _, cmd := range rootCmd.Commands() {
		examples := cli.Examples(cmd.Name())
		if examples == "" {
			continue
		}
		cmd.Example = examples
	}

	return rootCmd
}

// Annotate annotates the flag identified by name with the key=ann.
func Annotate(fs *pflag.FlagSet, flagname, key, ann string) {
	fs.SetAnnotation(flagname, key, []string{ann})
}

// exclusivesMap maps an "exclusive" group (name) to its mutually exclusive
// flags (names).
type exclusivesMap map[string][]string

// mutuallyExclusives starts with the specified command and collects mutually
// exclusive flags as identified by their annotations. It then configures
// them into their groups. This process then recursively repeats with each
// child command.
func mutuallyExclusives(cmd *cobra.Command) {
	exclusives := exclusivesMap{}
	cmd.MarkFlagsMutuallyExclusive() // hack: trigger merging if not already happened
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		group := flag.Annotations[MutualFlagGroupAnnotation]
		if len(group) != 1 {
			return
		}
		name := flag.Name
		members := exclusives[group[0]]
		if slices.Contains(members, name) {
			return
		}
		exclusives[group[0]] = append(exclusives[group[0]], name)
	})
	for _, members := range exclusives {
		cmd.MarkFlagsMutuallyExclusive(members...)
	}
	for _, subcmd := range cmd.Commands() {
		mutuallyExclusives(subcmd)
	}
}
