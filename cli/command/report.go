// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Provides the "caprun report" command for pretty-printing the teardown
// report a completed capture session left in its artifact directory.

package command

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/probeworks/caprun"
	"github.com/probeworks/caprun/api"
	"github.com/probeworks/caprun/cli"
	"github.com/spf13/cobra"
	"github.com/thediveo/go-plugger/v3"
	"github.com/thediveo/klo"
)

// Builtin custom-columns templates
const (
	// ReportListTemplate defines the custom columns when listing monitor
	// outcomes of a session.
	ReportListTemplate = "MONITOR:{.Monitor},OUTCOME:{.Outcome}"
	// ReportWideListTemplate is like ReportListTemplate, but additionally
	// tacks on a column with the diagnostic detail of degraded monitors.
	ReportWideListTemplate = "MONITOR:{.Monitor},OUTCOME:{.Outcome},DETAIL:{.Detail}"
)

// OutcomeInfo is one row of the report listing.
type OutcomeInfo struct {
	Monitor string
	Outcome api.Outcome
	Detail  string
}

// reportCmd defines the "caprun report" command.
var reportCmd = &cobra.Command{
	Use:   "report [flags] SESSION-DIR",
	Short: "Show the teardown report of a completed capture session",
	Args:  cobra.ExactArgs(1),
	RunE:  report,
}

func init() {
	plugger.Group[cli.SetupCLI]().Register(ReportSetupCLI, plugger.WithPlugin("report"))
}

// ReportSetupCLI adds the “report” command.
func ReportSetupCLI(cmd *cobra.Command) {
	cmd.AddCommand(reportCmd)
	reportCmd.Flags().StringP("output", "o", "",
		"Output format. One of: json|yaml|wide|custom-columns=...|custom-columns-file=...|jsonpath=...|jsonpath-file=...")
	reportCmd.Flags().Bool("no-headers", false,
		"When using the default or custom-column output format, don't print headers (default print headers).")
	reportCmd.Flags().String("sort-by", "{.Monitor}",
		"If non-empty, sort list using this field specification. The field specification is expressed as a JSONPath expression (e.g. '{.Monitor}').")
}

// report reads the teardown report from the given session directory (or
// directly from a report file) and prints the per-monitor outcomes using a
// template.
func report(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !strings.HasSuffix(path, ".json") {
		path = filepath.Join(path, caprun.TeardownReportFile)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read teardown report: %s", err.Error())
	}
	var tr api.TeardownReport
	if err := json.Unmarshal(data, &tr); err != nil {
		return fmt.Errorf("malformed teardown report %q: %s", path, err.Error())
	}
	infos := make([]OutcomeInfo, 0, len(tr.Monitors))
	for name, outcome := range tr.Monitors {
		infos = append(infos, OutcomeInfo{
			Monitor: name,
			Outcome: outcome.Outcome,
			Detail:  outcome.Error,
		})
	}
	prn, err := getPrinter(cmd, &klo.Specs{
		DefaultColumnSpec: ReportListTemplate,
		WideColumnSpec:    ReportWideListTemplate,
	})
	if err != nil {
		return err
	}
	prn.Fprint(os.Stdout, infos)
	// The workload status line only accompanies the human-oriented output
	// formats, so json/yaml output stays clean structured data.
	if outfmt, err := cmd.LocalFlags().GetString("output"); err == nil &&
		(outfmt == "" || outfmt == "wide") {
		if tr.Workload != nil {
			if tr.Workload.State == api.WorkloadFailed {
				fmt.Printf("workload: %s (exit code %d)\n",
					tr.Workload.State, tr.Workload.ExitCode)
			} else {
				fmt.Printf("workload: %s\n", tr.Workload.State)
			}
		}
		fmt.Printf("session %q ran %s\n",
			tr.Session, tr.Finished.Sub(tr.Started).Round(10*time.Millisecond))
	}
	return nil
}
