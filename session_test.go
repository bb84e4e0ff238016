// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package caprun

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/probeworks/caprun/api"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// testConfig returns a session configuration with a fresh output root below
// a temporary directory that automatically gets cleaned up.
func testConfig(name string, duration int) *api.SessionConfig {
	root, err := os.MkdirTemp("", "caprun-session-test-*")
	Expect(err).ShouldNot(HaveOccurred())
	DeferCleanup(os.RemoveAll, root)
	return &api.SessionConfig{
		Name:            name,
		OutputRoot:      root,
		DurationSeconds: duration,
		GraceSeconds:    2,
	}
}

var _ = Describe("capture sessions", func() {

	It("rejects a hopeless configuration before creating anything", func() {
		cfg := testConfig("", 60)
		session, err := NewSession(cfg, nil)
		Expect(session).Should(BeNil())
		var serr *SetupError
		Expect(errors.As(err, &serr)).Should(BeTrue())
		entries, err := os.ReadDir(cfg.OutputRoot)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(entries).Should(BeEmpty())
	})

	It("owns a timestamped session directory", func() {
		cfg := testConfig("proberun", 60)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(session.State()).Should(Equal(StateCreated))
		Expect(filepath.Dir(session.Dir())).Should(Equal(cfg.OutputRoot))
		Expect(filepath.Base(session.Dir())).Should(HavePrefix("proberun_"))
		Expect(session.Dir()).Should(BeADirectory())
		// A second same-named session must get its own directory.
		session2, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(session2.Dir()).ShouldNot(Equal(session.Dir()))
	})

	It("degrades instead of failing when a monitor cannot launch", func() {
		cfg := testConfig("degraded", 60)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		mon, err := session.AddMonitor(api.MonitorSpec{
			Name:    "ghost",
			Command: "there-is-no-such-diag-tool",
		})
		Expect(mon).Should(BeNil())
		var lerr *LaunchError
		Expect(errors.As(err, &lerr)).Should(BeTrue())
		// The failure must be visible in the artifacts and in the report.
		Expect(filepath.Join(session.Dir(), "launch_failures.log")).
			Should(BeAnExistingFile())
		report := session.Stop()
		Expect(report.Monitors).Should(HaveKey("ghost"))
		Expect(report.Monitors["ghost"].Outcome).Should(Equal(api.LaunchFailed))
		Expect(report.Monitors["ghost"].Error).ShouldNot(BeEmpty())
	})

	It("runs a full session lifecycle and reports it", func() {
		cfg := testConfig("lifecycle", 60)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		mon, err := session.AddMonitor(api.MonitorSpec{
			Name:    "napper",
			Command: "sleep",
			Args:    []string{"60"},
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(mon).ShouldNot(BeNil())
		Expect(session.State()).Should(Equal(StateMonitorsStarting))

		status := session.RunWorkload("sh", "-c", "echo hello from the workload")
		Expect(status.State).Should(Equal(api.WorkloadExited))
		Expect(status.ExitCode).Should(BeZero())
		Expect(os.ReadFile(filepath.Join(session.Dir(), WorkloadLogFile))).
			Should(ContainSubstring("hello from the workload"))

		report := session.Stop()
		Expect(session.State()).Should(Equal(StateCompleted))
		Expect(report.Workload).ShouldNot(BeNil())
		Expect(report.Workload.State).Should(Equal(api.WorkloadExited))
		Expect(report.Monitors).Should(HaveKeyWithValue("napper",
			api.MonitorOutcome{Outcome: api.ExitedCleanly}))

		// The report must also have been persisted, as valid JSON.
		data, err := os.ReadFile(filepath.Join(session.Dir(), TeardownReportFile))
		Expect(err).ShouldNot(HaveOccurred())
		var persisted api.TeardownReport
		Expect(json.Unmarshal(data, &persisted)).Should(Succeed())
		Expect(persisted.Session).Should(Equal("lifecycle"))

		// Stopping again must be a no-op returning the same report.
		Expect(session.Stop()).Should(BeIdenticalTo(report))
		// And no monitors can be added to a spent session.
		_, err = session.AddMonitor(api.MonitorSpec{Name: "late", Command: "sleep"})
		Expect(err).Should(HaveOccurred())
	})

	It("reports a failing workload without failing the session", func() {
		cfg := testConfig("flaky", 60)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		status := session.RunWorkload("sh", "-c", "exit 3")
		Expect(status.State).Should(Equal(api.WorkloadFailed))
		Expect(status.ExitCode).Should(Equal(3))
		report := session.Stop()
		Expect(report.Workload.State).Should(Equal(api.WorkloadFailed))
		Expect(report.Workload.ExitCode).Should(Equal(3))
	})

	It("reports an unresolvable workload command", func() {
		cfg := testConfig("toolless", 60)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		status := session.RunWorkload("there-is-no-such-diag-tool")
		Expect(status.State).Should(Equal(api.WorkloadNotFound))
	})

	It("terminates a workload overstaying the session deadline", func() {
		cfg := testConfig("overdue", 1)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		begin := time.Now()
		status := session.RunWorkload("sleep", "60")
		Expect(status.State).Should(Equal(api.WorkloadTimedOut))
		Expect(status.TimedOut()).Should(BeTrue())
		// ...within the duration bound plus the grace period, give or take.
		Expect(time.Since(begin)).Should(BeNumerically("<", 5*time.Second))
	})

	It("times out workload and monitor together at the session deadline", func() {
		cfg := testConfig("slowpoke", 1)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		mon, err := session.AddMonitor(api.MonitorSpec{
			Name:    "napper",
			Command: "sleep",
			Args:    []string{"60"},
		})
		Expect(err).ShouldNot(HaveOccurred())
		status := session.RunWorkload("sleep", "60")
		Expect(status.State).Should(Equal(api.WorkloadTimedOut))
		// The monitor's lifetime is bound to the very same deadline.
		Eventually(func() api.Outcome { return mon.Outcome().Outcome }, "10s", "100ms").
			Should(Equal(api.TimedOutKilled))
		report := session.Stop()
		Expect(report.Workload.State).Should(Equal(api.WorkloadTimedOut))
		Expect(report.Monitors).Should(HaveKeyWithValue("napper",
			api.MonitorOutcome{Outcome: api.TimedOutKilled}))
		// Both fates must be named in the persisted report.
		data, err := os.ReadFile(filepath.Join(session.Dir(), TeardownReportFile))
		Expect(err).ShouldNot(HaveOccurred())
		var persisted api.TeardownReport
		Expect(json.Unmarshal(data, &persisted)).Should(Succeed())
		Expect(persisted.Workload.State).Should(Equal(api.WorkloadTimedOut))
		Expect(persisted.Monitors["napper"].Outcome).Should(Equal(api.TimedOutKilled))
	})

	It("bounds an individual monitor's lifetime", func() {
		cfg := testConfig("bounded", 60)
		session, err := NewSession(cfg, nil)
		Expect(err).ShouldNot(HaveOccurred())
		mon, err := session.AddMonitor(api.MonitorSpec{
			Name:               "shortlived",
			Command:            "sleep",
			Args:               []string{"60"},
			MaxDurationSeconds: 1,
		})
		Expect(err).ShouldNot(HaveOccurred())
		Eventually(func() api.Outcome { return mon.Outcome().Outcome }, "10s", "100ms").
			Should(Equal(api.TimedOutKilled))
		report := session.Stop()
		Expect(report.Monitors["shortlived"].Outcome).Should(Equal(api.TimedOutKilled))
	})

})
