// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package transform

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Transform is a pure file-to-file post-processing step over session
// artifacts: it reads one produced artifact and writes a derived one, never
// mutating its input. Transforms are independent and idempotent, so a
// session can apply any subset of them, in any order, as often as it likes.
type Transform struct {
	// Name of the transform, for logging.
	Name string
	// Input artifact path; relative paths are resolved against the session
	// directory.
	Input string
	// Output artifact path; relative paths are resolved against the session
	// directory.
	Output string
	// Apply derives the output from the input. It must not retain either.
	Apply func(in io.Reader, out io.Writer) error
}

// Run applies the transform with its paths resolved against the given
// session directory. A missing input file, or a failing Apply, is reported
// as an error for the caller to log and skip; no partial output file is left
// behind in that case.
func (t Transform) Run(dir string) error {
	inpath := resolve(dir, t.Input)
	in, err := os.Open(inpath)
	if err != nil {
		return fmt.Errorf("transform %q: %w", t.Name, err)
	}
	defer in.Close()
	outpath := resolve(dir, t.Output)
	out, err := os.Create(outpath)
	if err != nil {
		return fmt.Errorf("transform %q: %w", t.Name, err)
	}
	w := bufio.NewWriter(out)
	if err := t.Apply(bufio.NewReader(in), w); err != nil {
		out.Close()
		os.Remove(outpath)
		return fmt.Errorf("transform %q: %w", t.Name, err)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(outpath)
		return fmt.Errorf("transform %q: %w", t.Name, err)
	}
	return out.Close()
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
