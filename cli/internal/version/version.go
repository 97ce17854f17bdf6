// Package version exposes the build metadata stamped into the binary.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// Overridden at release time via -ldflags "-X". The defaults describe a
// from-source build.
var (
	Version   = "0.1.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// Short is the one-line form printed by --version style output.
func Short() string {
	return fmt.Sprintf("driftlock %s (%s/%s, %s)",
		Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// Detail is the multi-line form for the version command.
func Detail() string {
	var b strings.Builder
	b.WriteString(Short())
	fmt.Fprintf(&b, "\n  commit: %s", Commit)
	fmt.Fprintf(&b, "\n  built:  %s", BuildDate)
	return b.String()
}
