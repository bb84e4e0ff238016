// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package caprun

import "syscall"

// sysProcAttr returns process attributes that put a monitor or workload
// child into its own process group. Pdeathsig is a Linux-only safety net: if
// the orchestrator dies unexpectedly, the kernel sends SIGTERM to the direct
// child, making accidental monitor leakage structurally harder.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGTERM,
	}
}
