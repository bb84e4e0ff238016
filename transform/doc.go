/*
Package transform provides the pure file-to-file post-processing steps a
capture session applies to its artifacts after teardown: cleaning captured
terminal transcripts of control sequences, condensing socket poll logs into
connections-vs-time tables, and summarizing binary packet captures into
human-readable reports.

Transforms only ever read the artifacts the session's monitors and workload
produced and write derived files next to them; the produced artifacts
themselves are immutable once their producing process has exited. Every
transform is independent of the others and idempotent, so failing or
skipping one never affects the rest.
*/
package transform
