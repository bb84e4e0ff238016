// (c) Probeworks 2026
//
// SPDX-License-Identifier: MIT

package caprun

// SemVersion is the semantic version of the caprun module; the caprun CLI
// reports this very version, there is no separate CLI version.
const SemVersion = "1.2.0"
