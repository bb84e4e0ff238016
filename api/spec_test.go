// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package api

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// goodConfig returns a minimal valid session configuration for tests to
// break in interesting ways.
func goodConfig() *SessionConfig {
	return &SessionConfig{
		Name:            "probing",
		OutputRoot:      "artifacts",
		DurationSeconds: 90,
		Monitors: []MonitorSpec{
			{Name: "tcpdump", Command: "tcpdump", Args: []string{"-i", "any"}},
			{Name: "edge", Kind: MonitorStream, ServiceURL: "https://edge:5001/capture"},
		},
		Workload: &WorkloadSpec{Command: "sh", Args: []string{"-c", "true"}},
	}
}

var _ = Describe("session configurations", func() {

	It("converts duration and grace settings", func() {
		cfg := &SessionConfig{DurationSeconds: 90, GraceSeconds: 5}
		Expect(cfg.Duration()).Should(Equal(90 * time.Second))
		Expect(cfg.Grace()).Should(Equal(5 * time.Second))
	})

	It("validates a sensible configuration", func() {
		Expect(goodConfig().Validate()).Should(Succeed())
	})

	DescribeTable("rejecting broken configurations",
		func(breakit func(cfg *SessionConfig), msg string) {
			cfg := goodConfig()
			breakit(cfg)
			Expect(cfg.Validate()).Should(MatchError(ContainSubstring(msg)))
		},
		Entry("without a name",
			func(cfg *SessionConfig) { cfg.Name = "" }, "lacks a name"),
		Entry("without an output root",
			func(cfg *SessionConfig) { cfg.OutputRoot = "" }, "no output root"),
		Entry("without a positive duration",
			func(cfg *SessionConfig) { cfg.DurationSeconds = 0 }, "duration must be positive"),
		Entry("with a nameless monitor",
			func(cfg *SessionConfig) { cfg.Monitors[0].Name = "" }, "monitor without a name"),
		Entry("with duplicate monitor names",
			func(cfg *SessionConfig) { cfg.Monitors[1] = cfg.Monitors[0] }, "duplicate monitor name"),
		Entry("with a commandless exec monitor",
			func(cfg *SessionConfig) { cfg.Monitors[0].Command = "" }, "no command"),
		Entry("with an unaddressed stream monitor",
			func(cfg *SessionConfig) { cfg.Monitors[1].ServiceURL = "" }, "no capture service URL"),
		Entry("with a monitor of unheard-of kind",
			func(cfg *SessionConfig) { cfg.Monitors[0].Kind = "intravenous" }, "unknown kind"),
		Entry("with a negative monitor lifetime",
			func(cfg *SessionConfig) { cfg.Monitors[0].MaxDurationSeconds = -1 }, "negative max duration"),
		Entry("with a commandless workload",
			func(cfg *SessionConfig) { cfg.Workload.Command = "" }, "workload without a command"),
	)

	It("loads a configuration from YAML", func() {
		dir, err := os.MkdirTemp("", "caprun-api-test-*")
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		path := filepath.Join(dir, "session.yaml")
		Expect(os.WriteFile(path, []byte(`
name: scraping
output_root: artifacts
duration_seconds: 120
grace_seconds: 10
monitors:
  - name: tcpdump
    command: tcpdump
    args: ["-i", "any", "-w", "packets.pcap"]
  - name: edge
    kind: stream
    service_url: https://edge:5001/capture
    max_duration_seconds: 60
workload:
  command: python3
  args: ["scrape.py"]
`), 0644)).Should(Succeed())
		cfg, err := LoadSessionConfig(path)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(cfg.Name).Should(Equal("scraping"))
		Expect(cfg.Duration()).Should(Equal(2 * time.Minute))
		Expect(cfg.Monitors).Should(HaveLen(2))
		Expect(cfg.Monitors[0].Args).Should(ContainElement("packets.pcap"))
		Expect(cfg.Monitors[1].Kind).Should(Equal(MonitorStream))
		Expect(cfg.Monitors[1].MaxDurationSeconds).Should(Equal(60))
		Expect(cfg.Workload.Command).Should(Equal("python3"))
	})

	It("refuses to load malformed or invalid YAML", func() {
		dir, err := os.MkdirTemp("", "caprun-api-test-*")
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
		_, err = LoadSessionConfig(filepath.Join(dir, "nothing-here.yaml"))
		Expect(err).Should(HaveOccurred())
		path := filepath.Join(dir, "session.yaml")
		Expect(os.WriteFile(path, []byte("name: [*"), 0644)).Should(Succeed())
		_, err = LoadSessionConfig(path)
		Expect(err).Should(MatchError(ContainSubstring("malformed")))
	})

})

var _ = Describe("workload status", func() {

	It("tells timeouts apart from failures", func() {
		Expect(WorkloadStatus{State: WorkloadTimedOut}.TimedOut()).Should(BeTrue())
		Expect(WorkloadStatus{State: WorkloadFailed, ExitCode: 3}.TimedOut()).Should(BeFalse())
	})

})
