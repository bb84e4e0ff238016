// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package transform

import (
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// udpPacket serializes a small Ethernet/IPv4/UDP packet for feeding the
// summarizer a capture with known contents.
func udpPacket(payload string) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{2, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{10, 0, 0, 1},
		DstIP:    net.IP{10, 0, 0, 2},
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 9}
	Expect(udp.SetNetworkLayerForChecksum(ip)).Should(Succeed())
	buf := gopacket.NewSerializeBuffer()
	Expect(gopacket.SerializeLayers(buf,
		gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
		eth, ip, udp, gopacket.Payload(payload))).Should(Succeed())
	return buf.Bytes()
}

var _ = Describe("capture summaries", func() {

	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "caprun-pcap-test-*")
		Expect(err).ShouldNot(HaveOccurred())
		DeferCleanup(os.RemoveAll, dir)
	})

	It("summarizes a classic pcap capture", func() {
		capfile, err := os.Create(filepath.Join(dir, "packets.pcap"))
		Expect(err).ShouldNot(HaveOccurred())
		w := pcapgo.NewWriter(capfile)
		Expect(w.WriteFileHeader(65536, layers.LinkTypeEthernet)).Should(Succeed())
		when := time.Date(2026, time.August, 29, 12, 0, 0, 0, time.UTC)
		for i, payload := range []string{"ping", "pong"} {
			pkt := udpPacket(payload)
			Expect(w.WritePacket(gopacket.CaptureInfo{
				Timestamp:     when.Add(time.Duration(i) * time.Second),
				CaptureLength: len(pkt),
				Length:        len(pkt),
			}, pkt)).Should(Succeed())
		}
		Expect(capfile.Close()).Should(Succeed())

		t := PcapSummary("packets.pcap", "packets_summary.txt")
		Expect(t.Run(dir)).Should(Succeed())
		summary, err := os.ReadFile(filepath.Join(dir, "packets_summary.txt"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(summary)).Should(ContainSubstring("packets:         2"))
		Expect(string(summary)).Should(ContainSubstring("capture span:    1s"))
		Expect(string(summary)).Should(ContainSubstring("UDP"))
	})

	It("tolerates a capture cut short by a killed tool", func() {
		capfile, err := os.Create(filepath.Join(dir, "cut.pcap"))
		Expect(err).ShouldNot(HaveOccurred())
		w := pcapgo.NewWriter(capfile)
		Expect(w.WriteFileHeader(65536, layers.LinkTypeEthernet)).Should(Succeed())
		pkt := udpPacket("ping")
		Expect(w.WritePacket(gopacket.CaptureInfo{
			Timestamp:     time.Now(),
			CaptureLength: len(pkt),
			Length:        len(pkt),
		}, pkt)).Should(Succeed())
		// Half a packet record header, as a SIGKILL'ed tool leaves behind.
		_, err = capfile.Write([]byte{1, 2, 3, 4, 5, 6})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(capfile.Close()).Should(Succeed())

		t := PcapSummary("cut.pcap", "cut_summary.txt")
		Expect(t.Run(dir)).Should(Succeed())
		summary, err := os.ReadFile(filepath.Join(dir, "cut_summary.txt"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(string(summary)).Should(ContainSubstring("packets:         1"))
		Expect(string(summary)).Should(ContainSubstring("ends mid-packet"))
	})

	It("rejects something that never was a capture", func() {
		Expect(os.WriteFile(filepath.Join(dir, "not.pcap"),
			[]byte("plain text, no capture at all"), 0644)).Should(Succeed())
		t := PcapSummary("not.pcap", "not_summary.txt")
		Expect(t.Run(dir)).Should(MatchError(ContainSubstring("malformed")))
	})

})
