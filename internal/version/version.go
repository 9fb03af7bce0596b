// Package version exposes the tracklet build version.
package version

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed VERSION
var versionContent string

// Commit and Date are stamped at release build time via -ldflags. Plain
// go build leaves them as "unknown".
var (
	Commit = "unknown"
	Date   = "unknown"
)

// Get returns the current version, with whitespace trimmed.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// Full returns the version with commit and build date attached.
func Full() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Get(), Commit, Date)
}
