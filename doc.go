/*
Package caprun orchestrates capture sessions: it runs a set of time-bounded
background monitors (packet capture, bandwidth and socket observers, and
other network-diagnostic tools) around a single bounded foreground workload,
and guarantees their clean start, timeout, and teardown. Everything a
session produces ends up in one timestamped artifact directory, closed out
by a teardown report that names how each monitor ended.

The defining property of a session is partial-failure tolerance: a missing
tool, an early-crashing monitor, or a monitor that refuses to terminate must
never keep the workload from running to completion, nor the session from
reaching its terminal, reported state. Monitor launch failures degrade the
session and get recorded; only the failure to create the session directory
aborts a session before anything is spawned.

Monitors come in two kinds. Exec monitors run an external tool, such as
tcpdump or ss, as a detached background process in its own process group,
writing into an artifact file. Stream monitors instead record the packet
stream of a remote capture service into an artifact file, so a session can
include captures taken next to the traffic source rather than on the local
host.

Sessions are strictly single-use: created, monitors started, workload run,
torn down, done. The artifact directory persists; the session does not.
*/
package caprun
