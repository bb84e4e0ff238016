// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package run

import (
	"github.com/probeworks/caprun/api"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("inline monitor specs", func() {

	It("parses name, command, and args", func() {
		spec, err := parseMonitorSpec("tcpdump=tcpdump -i any -w packets.pcap")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(spec).Should(Equal(api.MonitorSpec{
			Name:    "tcpdump",
			Command: "tcpdump",
			Args:    []string{"-i", "any", "-w", "packets.pcap"},
		}))
	})

	It("parses a bare command without args", func() {
		spec, err := parseMonitorSpec("nload=nload")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(spec.Command).Should(Equal("nload"))
		Expect(spec.Args).Should(BeEmpty())
	})

	DescribeTable("rejecting malformed specs",
		func(malformed string) {
			_, err := parseMonitorSpec(malformed)
			Expect(err).Should(MatchError(ContainSubstring("invalid monitor spec")))
		},
		Entry("empty", ""),
		Entry("without a separator", "just-a-name"),
		Entry("without a name", "=tcpdump -i any"),
		Entry("without a command", "tcpdump="),
	)

})
