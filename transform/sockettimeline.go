// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Condenses a socket poll log into a connections-vs-time table. The ss
// monitor writes its log in a dead-simple format: an epoch-seconds marker
// line, followed by one line per connection seen at that instant, then the
// next marker, and so on.

package transform

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// epochMarker matches the epoch-seconds marker lines separating the polls.
var epochMarker = regexp.MustCompile(`^\d{10}$`)

// SocketTimeline returns the transform that condenses an ss poll log into a
// connections-vs-time table, with time normalized to start at zero seconds.
func SocketTimeline(input, output string) Transform {
	return Transform{
		Name:   "socket-timeline",
		Input:  input,
		Output: output,
		Apply:  condenseSocketLog,
	}
}

type socketSample struct {
	ts    int64
	conns int
}

func condenseSocketLog(in io.Reader, out io.Writer) error {
	var samples []socketSample
	var current int64 = -1
	count := 0
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if epochMarker.MatchString(line) {
			if current >= 0 {
				samples = append(samples, socketSample{ts: current, conns: count})
			}
			current, _ = strconv.ParseInt(line, 10, 64)
			count = 0
			continue
		}
		if line != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if current >= 0 {
		samples = append(samples, socketSample{ts: current, conns: count})
	}

	if len(samples) == 0 {
		fmt.Fprintln(out, "no socket samples")
		return nil
	}
	t0 := samples[0].ts
	peak := 0
	fmt.Fprintln(out, "T_REL_S CONNECTIONS")
	for _, sample := range samples {
		fmt.Fprintf(out, "%-7d %d\n", sample.ts-t0, sample.conns)
		if sample.conns > peak {
			peak = sample.conns
		}
	}
	fmt.Fprintf(out, "\nsamples: %d, peak: %d connections\n", len(samples), peak)
	return nil
}
