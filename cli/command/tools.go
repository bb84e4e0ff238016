// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Provides the "caprun tools" command for checking which of the external
// monitor tools a session would shell out to are actually installed.

package command

import (
	"os"

	"github.com/probeworks/caprun"
	"github.com/probeworks/caprun/cli"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thediveo/go-plugger/v3"
	"github.com/thediveo/klo"
)

// Builtin custom-columns templates
const (
	// ToolListTemplate defines the custom columns when listing tool
	// availability.
	ToolListTemplate = "TOOL:{.Tool},STATUS:{.Status}"
	// ToolWideListTemplate is like ToolListTemplate, but additionally tacks
	// on a column showing where each tool resolved to.
	ToolWideListTemplate = "TOOL:{.Tool},STATUS:{.Status},PATH:{.Path}"
)

// wellKnownTools is the usual suspects set checked when no tools are named
// on the command line.
var wellKnownTools = []string{"nload", "ss", "tcpdump", "tshark"}

// ToolInfo is one row of the tools listing.
type ToolInfo struct {
	Tool   string
	Status string
	Path   string
}

// toolsCmd defines the "caprun tools" command.
var toolsCmd = &cobra.Command{
	Use:   "tools [flags] [TOOL...]",
	Short: "Check availability of external monitor tools",
	RunE:  listtools,
}

func init() {
	plugger.Group[cli.SetupCLI]().Register(ToolsSetupCLI, plugger.WithPlugin("tools"))
}

// ToolsSetupCLI adds the “tools” command.
func ToolsSetupCLI(cmd *cobra.Command) {
	cmd.AddCommand(toolsCmd)
	toolsCmd.Flags().StringP("output", "o", "",
		"Output format. One of: json|yaml|wide|custom-columns=...|custom-columns-file=...|jsonpath=...|jsonpath-file=...")
	toolsCmd.Flags().Bool("no-headers", false,
		"When using the default or custom-column output format, don't print headers (default print headers).")
	toolsCmd.Flags().String("sort-by", "{.Tool}",
		"If non-empty, sort list using this field specification. The field specification is expressed as a JSONPath expression (e.g. '{.Tool}').")
}

// listtools resolves the named tools (or the well-known monitor tool set)
// through PATH and prints their availability using a template.
func listtools(cmd *cobra.Command, args []string) error {
	tools := args
	if len(tools) == 0 {
		tools = wellKnownTools
	}
	var cache caprun.ToolCache
	infos := make([]ToolInfo, 0, len(tools))
	for _, tool := range tools {
		info := ToolInfo{Tool: tool, Status: "missing"}
		if path, err := cache.Lookup(tool); err == nil {
			info.Status = "available"
			info.Path = path
		} else {
			log.Debugf("tool %q not available: %s", tool, err.Error())
		}
		infos = append(infos, info)
	}
	prn, err := getPrinter(cmd, &klo.Specs{
		DefaultColumnSpec: ToolListTemplate,
		WideColumnSpec:    ToolWideListTemplate,
	})
	if err != nil {
		return err
	}
	prn.Fprint(os.Stdout, infos)
	return nil
}

// getPrinter returns a value printer configured according to the output
// format chosen by the user, and some more optional output configuration
// flags.
func getPrinter(cmd *cobra.Command, specs *klo.Specs) (prn klo.ValuePrinter, err error) {
	outfmt, err := cmd.LocalFlags().GetString("output")
	if err != nil {
		return
	}
	// Let the kubectl-like output package handle the details and give us
	// just the printer suitable for dumping the list onto our users.
	prn, err = klo.PrinterFromFlag(outfmt, specs)
	if err != nil {
		return
	}
	if ccprn, ok := prn.(*klo.CustomColumnsPrinter); ok {
		ccprn.Padding = 3
		if noheaders, err := cmd.LocalFlags().GetBool("no-headers"); err == nil {
			ccprn.HideHeaders = noheaders
		}
	}
	// ...throwing in sorting, if not explicitly forbidden. It depends on the
	// object printer if it will honor the sorted data or will just impose
	// its own order anyway.
	if sortby, err := cmd.LocalFlags().GetString("sort-by"); err == nil && sortby != "" {
		prn, err = klo.NewSortingPrinter(sortby, prn)
		if err != nil {
			return nil, err
		}
	}
	return
}
