// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package caprun

import (
	"path/filepath"
	"strings"

	"github.com/probeworks/caprun/api"
	"github.com/probeworks/caprun/transform"
)

// DefaultTransforms derives the post-processing transforms suggested by a
// session configuration: a control-sequence-free transcript of the workload
// log, packet summaries for capture files, and a connection timeline for
// socket poll logs. The result is meant to be handed straight to
// Session.Postprocess; transforms whose inputs never materialized are
// skipped there.
func DefaultTransforms(cfg *api.SessionConfig) []transform.Transform {
	var tfs []transform.Transform
	if cfg.Workload != nil {
		tfs = append(tfs, transform.StripControl(WorkloadLogFile, "workload_stdout.txt"))
	}
	for _, mon := range cfg.Monitors {
		out := mon.OutputPath
		if out == "" {
			if mon.Kind == api.MonitorStream {
				out = mon.Name + ".pcapng"
			} else {
				out = mon.Name + ".log"
			}
		}
		switch {
		case isCapture(out):
			tfs = append(tfs, transform.PcapSummary(out, summaryName(out)))
		case mon.Command == "ss" || mon.Name == "ss":
			tfs = append(tfs, transform.SocketTimeline(out, mon.Name+"_timeline.txt"))
		}
		// Capture tools often write their own file next to the output log,
		// such as tcpdump -w; those land in the session directory too and
		// deserve a summary of their own. Summary names derive from the
		// capture file, so multiple captures of one monitor don't fight
		// over a single summary.
		for _, arg := range mon.Args {
			if isCapture(arg) && arg != out {
				tfs = append(tfs, transform.PcapSummary(arg, summaryName(arg)))
			}
		}
	}
	return tfs
}

func isCapture(path string) bool {
	return strings.HasSuffix(path, ".pcap") || strings.HasSuffix(path, ".pcapng")
}

// summaryName derives the summary artifact name from the capture file it
// summarizes.
func summaryName(capture string) string {
	base := filepath.Base(capture)
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_summary.txt"
}
