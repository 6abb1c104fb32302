// Package version holds the zastat build version.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time:
// go build -ldflags "-X zastat/internal/version.Version=1.0.0 -X zastat/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Build describes the running binary.
type Build struct {
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	Modified  bool // built from a work tree with local changes
}

// Get returns the build description. Commit and BuildDate not set through
// ldflags are taken from the VCS stamp the go command embeds.
func Get() Build {
	b := Build{Version: Version, Commit: Commit, BuildDate: BuildDate, GoVersion: runtime.Version()}
	info, ok := readBuildInfo()
	if !ok {
		return b
	}
	if info.GoVersion != "" {
		b.GoVersion = info.GoVersion
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.BuildDate == "unknown" {
				b.BuildDate = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		}
	}
	return b
}

// Short is the version followed by the abbreviated commit, e.g.
// "0.4.0 (1a2b3c4)" or "0.4.0 (1a2b3c4-dirty)".
func (b Build) Short() string {
	if b.Commit == "unknown" || len(b.Commit) <= 7 {
		return b.Version
	}
	commit := b.Commit[:7]
	if b.Modified {
		commit += "-dirty"
	}
	return b.Version + " (" + commit + ")"
}

// Info is Get().Short().
func Info() string {
	return Get().Short()
}

// Full is the banner printed by `zastat version`.
func Full() string {
	b := Get()
	var sb strings.Builder
	sb.WriteString("zastat version " + b.Version + "\n")
	sb.WriteString("Commit: " + b.Commit)
	if b.Modified {
		sb.WriteString(" (modified)")
	}
	sb.WriteString("\nBuilt: " + b.BuildDate + "\n")
	sb.WriteString("Go: " + b.GoVersion)
	return sb.String()
}
