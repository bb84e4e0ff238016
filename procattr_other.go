// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

//go:build !linux

package caprun

import "syscall"

// sysProcAttr returns process attributes that put a monitor or workload
// child into its own process group. Pdeathsig is not available on non-Linux
// platforms.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid: true,
	}
}
