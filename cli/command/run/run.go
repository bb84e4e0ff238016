// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package run

import (
	"fmt"
	"strings"
	"time"

	"github.com/probeworks/caprun"
	"github.com/probeworks/caprun/api"
	"github.com/probeworks/caprun/cli"
	"github.com/probeworks/caprun/cli/command"
	"github.com/thediveo/go-plugger/v3"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// runCmd defines the "caprun run" command: one complete capture session
// around an optional foreground workload.
var runCmd = &cobra.Command{
	Use:   "run [flags] [--] [COMMAND [ARG...]]",
	Short: "Run a capture session: monitors around a bounded workload",
	Args:  cobra.ArbitraryArgs,
	RunE:  run,
}

func init() {
	plugger.Group[cli.SetupCLI]().Register(RunSetupCLI, plugger.WithPlugin("run"))
	plugger.Group[cli.CommandExamples]().Register(
		func() map[string]string {
			return map[string]string{
				"run": `# Capture tcpdump around a 90s scraping run
caprun run -t 90s -m "tcpdump=tcpdump -i any -w tcpdump.pcap" -- python3 scrape.py --max 30

# Run the monitors and workload named in a session configuration file
caprun run --config session.yaml`,
			}
		},
		plugger.WithPlugin("run"))
}

// RunSetupCLI adds the “run” command.
func RunSetupCLI(cmd *cobra.Command) {
	cmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.StringP("config", "c", "", "YAML session configuration file")
	f.String("name", "capture", "Session name; prefixes the artifact directory")
	f.DurationP("duration", "t", 60*time.Second,
		"Session duration bound; monitors and workload still alive at the deadline are terminated")
	f.Duration("grace", caprun.DefaultGracePeriod,
		"Grace period between asking a process to terminate and force-killing it")
	f.StringArrayP("monitor", "m", []string{},
		`Monitor spec in the form "name=command [arg...]". Can be specified multiple times.`)
	// A session is specified either completely by a configuration file, or
	// by inline monitor specs; mixing the two would just invite confusion.
	command.Annotate(f, "config", command.MutualFlagGroupAnnotation, command.SessionSpecGroup)
	command.Annotate(f, "monitor", command.MutualFlagGroupAnnotation, command.SessionSpecGroup)
}

// run assembles the session configuration, then drives one session through
// its whole lifecycle: monitors up, workload, unconditional teardown,
// post-processing. Monitor degradations never make this command fail; only
// an uncreatable session directory or a missing workload command do.
func run(cmd *cobra.Command, args []string) error {
	cfg, err := sessionConfig(cmd, args)
	if err != nil {
		return err
	}
	// Ask the registered plugins for stream monitor connection options.
	var sopts *caprun.StreamOptions
	for _, newOpts := range plugger.Group[cli.NewStreamOptions]().Symbols() {
		if sopts = newOpts(); sopts != nil {
			break
		}
	}
	session, err := caprun.NewSession(cfg, sopts)
	if err != nil {
		return err
	}
	log.Infof("session %q: artifacts in %q", session.Name(), session.Dir())
	for _, mspec := range cfg.Monitors {
		// Launch failures have already been logged and recorded; a session
		// missing a monitor still is a session.
		session.AddMonitor(mspec)
	}
	var status api.WorkloadStatus
	if cfg.Workload != nil {
		status = session.RunWorkload(cfg.Workload.Command, cfg.Workload.Args...)
		log.Infof("session %q: workload %s", session.Name(), status.State)
	} else {
		log.Infof("session %q: no workload, observing until the deadline", session.Name())
		session.AwaitDeadline()
	}
	report := session.Stop()
	session.Postprocess(caprun.DefaultTransforms(cfg)...)
	for name, outcome := range report.Monitors {
		log.Infof("session %q: monitor %q: %s", session.Name(), name, outcome.Outcome)
	}
	fmt.Printf("session artifacts: %s\n", session.Dir())
	if cfg.Workload != nil && status.State == api.WorkloadNotFound {
		return fmt.Errorf("workload command %q not found", cfg.Workload.Command)
	}
	return nil
}

// sessionConfig builds the session configuration from either the YAML
// configuration file or the inline CLI flags, with a workload given on the
// command line taking precedence.
func sessionConfig(cmd *cobra.Command, args []string) (*api.SessionConfig, error) {
	var cfg *api.SessionConfig
	if cfgfile, _ := cmd.Flags().GetString("config"); cfgfile != "" {
		var err error
		if cfg, err = api.LoadSessionConfig(cfgfile); err != nil {
			return nil, err
		}
	} else {
		name, _ := cmd.Flags().GetString("name")
		duration, _ := cmd.Flags().GetDuration("duration")
		grace, _ := cmd.Flags().GetDuration("grace")
		cfg = &api.SessionConfig{
			Name:            name,
			DurationSeconds: int(duration / time.Second),
			GraceSeconds:    int(grace / time.Second),
		}
		monitors, _ := cmd.Flags().GetStringArray("monitor")
		for _, mspec := range monitors {
			spec, err := parseMonitorSpec(mspec)
			if err != nil {
				return nil, err
			}
			cfg.Monitors = append(cfg.Monitors, spec)
		}
	}
	if cfg.OutputRoot == "" {
		cfg.OutputRoot = command.OutputRoot
	}
	if len(args) > 0 {
		cfg.Workload = &api.WorkloadSpec{Command: args[0], Args: args[1:]}
	}
	return cfg, nil
}

// parseMonitorSpec parses an inline "name=command [arg...]" monitor spec.
// The command line is split on whitespace only; anything needing shell
// quoting belongs into a configuration file (or behind "sh -c").
func parseMonitorSpec(s string) (api.MonitorSpec, error) {
	name, cmdline, ok := strings.Cut(s, "=")
	fields := strings.Fields(cmdline)
	if !ok || name == "" || len(fields) == 0 {
		return api.MonitorSpec{}, fmt.Errorf(
			"invalid monitor spec %q, expected \"name=command [arg...]\"", s)
	}
	return api.MonitorSpec{
		Name:    name,
		Command: fields[0],
		Args:    fields[1:],
	}, nil
}
