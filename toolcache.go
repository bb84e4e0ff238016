// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

// Provides caching of external tool path lookups: the same tools tend to be
// looked up repeatedly when checking availability and when launching the
// monitors of a session.

package caprun

import (
	"os/exec"
	"sync"
)

// ToolCache caches and indexes PATH resolutions of external monitor and
// workload tools. It can safely be accessed simultaneously by multiple go
// routines.
type ToolCache struct {
	// Map of tool name to its resolved absolute path.
	paths map[string]string
	m     sync.Mutex
}

// Lookup resolves the named tool through PATH, returning its absolute path.
// Successful resolutions are cached; failed ones are not, so a tool
// installed mid-run will be picked up by a later lookup.
func (tc *ToolCache) Lookup(tool string) (string, error) {
	tc.m.Lock()
	defer tc.m.Unlock()
	if path, ok := tc.paths[tool]; ok {
		return path, nil
	}
	path, err := exec.LookPath(tool)
	if err != nil {
		return "", err
	}
	if tc.paths == nil {
		tc.paths = map[string]string{}
	}
	tc.paths[tool] = path
	return path, nil
}

// Available returns true if the named tool can be resolved through PATH.
func (tc *ToolCache) Available(tool string) bool {
	_, err := tc.Lookup(tool)
	return err == nil
}

// Clear the cached tool path resolutions: the next Lookup will hit PATH
// afresh.
func (tc *ToolCache) Clear() {
	tc.m.Lock()
	defer tc.m.Unlock()
	tc.paths = nil
}
