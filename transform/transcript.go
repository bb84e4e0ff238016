// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Cleans captured terminal transcripts: workloads and monitors writing
// through a pty leave ANSI control sequences, carriage returns, and
// backspace overstrikes in their logs, which make the transcripts unpleasant
// to read and diff.

package transform

import (
	"io"
	"regexp"
)

var (
	// csiSeq matches ANSI CSI control sequences, such as cursor movement and
	// color selections.
	csiSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	// oscSeq matches OSC sequences (terminal title setting, et cetera),
	// terminated by either BEL or ST.
	oscSeq = regexp.MustCompile(`\x1b\][^\x1b\x07]*(\x07|\x1b\\)`)
	// escSeq matches the remaining two-byte escape sequences.
	escSeq = regexp.MustCompile(`\x1b[@-_]`)
	// overstrike matches a character overwritten via backspace.
	overstrike = regexp.MustCompile(`[^\n\x08]\x08`)
)

// StripControl returns the transform that strips terminal control sequences
// from the input artifact and normalizes its line endings to plain newlines.
func StripControl(input, output string) Transform {
	return Transform{
		Name:   "strip-control",
		Input:  input,
		Output: output,
		Apply:  stripControl,
	}
}

func stripControl(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	data = oscSeq.ReplaceAll(data, nil)
	data = csiSeq.ReplaceAll(data, nil)
	data = escSeq.ReplaceAll(data, nil)
	// Resolve backspace overstrikes; each pass removes one level of
	// overstriking, the way col -b flattens man page output.
	for overstrike.Match(data) {
		data = overstrike.ReplaceAll(data, nil)
	}
	cleaned := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == '\r':
			// CRLF becomes LF; a lone CR was a line ending too.
			if i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			cleaned = append(cleaned, '\n')
		case c == '\n' || c == '\t':
			cleaned = append(cleaned, c)
		case c < 0x20 || c == 0x7f:
			// Remaining control characters get dropped.
		default:
			cleaned = append(cleaned, c)
		}
	}
	if len(cleaned) > 0 && cleaned[len(cleaned)-1] != '\n' {
		cleaned = append(cleaned, '\n')
	}
	_, err = out.Write(cleaned)
	return err
}
