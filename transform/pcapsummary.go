// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Summarizes a binary packet capture artifact into a small human-readable
// report: packet and byte totals, the captured time span, and a per-protocol
// tally. The capture itself stays untouched; report generation proper (with
// charts and all) is somebody else's business.

package transform

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"golang.org/x/exp/slices"
)

// pcapngMagic is the block type magic starting every pcapng section header
// block; classic pcap files start differently.
var pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}

// PcapSummary returns the transform that condenses the pcap or pcapng
// artifact into a human-readable text summary.
func PcapSummary(input, output string) Transform {
	return Transform{
		Name:   "pcap-summary",
		Input:  input,
		Output: output,
		Apply:  summarizeCapture,
	}
}

// packetSource abstracts over the pcap and pcapng readers.
type packetSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

func summarizeCapture(in io.Reader, out io.Writer) error {
	br := bufio.NewReader(in)
	magic, err := br.Peek(len(pcapngMagic))
	if err != nil {
		return fmt.Errorf("unreadable capture: %w", err)
	}
	var src packetSource
	var linkType layers.LinkType
	if bytes.Equal(magic, pcapngMagic) {
		ngr, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return fmt.Errorf("malformed pcapng capture: %w", err)
		}
		src = ngr
		linkType = ngr.LinkType()
	} else {
		r, err := pcapgo.NewReader(br)
		if err != nil {
			return fmt.Errorf("malformed pcap capture: %w", err)
		}
		src = r
		linkType = r.LinkType()
	}

	var packets, octets int
	var first, last gopacket.CaptureInfo
	tally := map[string]int{}
	truncated := false
	for {
		data, ci, err := src.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A capture cut short by a killed tool is business as usual
			// here; summarize what we got and say so.
			truncated = true
			break
		}
		if packets == 0 {
			first = ci
		}
		last = ci
		packets++
		octets += ci.Length
		tally[protocolOf(data, linkType)]++
	}

	fmt.Fprintf(out, "link type:       %s\n", linkType)
	fmt.Fprintf(out, "packets:         %d\n", packets)
	fmt.Fprintf(out, "bytes on wire:   %d\n", octets)
	if packets > 0 {
		fmt.Fprintf(out, "first packet:    %s\n", first.Timestamp.UTC().Format("2006-01-02 15:04:05.000000"))
		fmt.Fprintf(out, "last packet:     %s\n", last.Timestamp.UTC().Format("2006-01-02 15:04:05.000000"))
		fmt.Fprintf(out, "capture span:    %s\n", last.Timestamp.Sub(first.Timestamp))
	}
	if truncated {
		fmt.Fprintf(out, "note:            capture ends mid-packet (tool was terminated)\n")
	}
	if packets > 0 {
		fmt.Fprintf(out, "\nprotocols:\n")
		protos := make([]string, 0, len(tally))
		for proto := range tally {
			protos = append(protos, proto)
		}
		slices.Sort(protos)
		for _, proto := range protos {
			fmt.Fprintf(out, "  %-8s %d\n", proto, tally[proto])
		}
	}
	return nil
}

// protocolOf decodes just far enough to put the packet into a coarse
// protocol bucket.
func protocolOf(data []byte, linkType layers.LinkType) string {
	pkt := gopacket.NewPacket(data, linkType, gopacket.Lazy)
	switch {
	case pkt.Layer(layers.LayerTypeDNS) != nil:
		return "DNS"
	case pkt.Layer(layers.LayerTypeTCP) != nil:
		return "TCP"
	case pkt.Layer(layers.LayerTypeUDP) != nil:
		return "UDP"
	case pkt.Layer(layers.LayerTypeICMPv4) != nil:
		return "ICMPv4"
	case pkt.Layer(layers.LayerTypeICMPv6) != nil:
		return "ICMPv6"
	case pkt.Layer(layers.LayerTypeARP) != nil:
		return "ARP"
	}
	return "other"
}
