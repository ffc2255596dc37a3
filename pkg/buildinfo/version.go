// Package buildinfo reports the version of the rigstash binary.
//
// Release builds stamp the variables with ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/rigstash/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/rigstash/pkg/buildinfo.Commit=$(git rev-parse HEAD)"
//
// Unstamped builds fall back to the module version and VCS settings the Go
// toolchain embeds.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Stamped by ldflags. The defaults mark an unstamped build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info is the resolved build information.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Dirty   bool   `json:"dirty,omitempty"`
}

var resolve = sync.OnceValue(func() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	return fromBuildInfo(info, bi)
})

// fromBuildInfo fills the fields still at their defaults from bi.
func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// Get returns the build information of the running binary.
func Get() Info { return resolve() }

// String formats i on one line, e.g. "v0.3.0 (1a2b3c4d, 2026-01-02T03:04:05Z)".
func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if i.Dirty {
		commit += "-dirty"
	}
	return fmt.Sprintf("%s (%s, %s)", i.Version, commit, i.Date)
}

// Template returns the cobra version template.
func Template() string {
	return "{{.Name}} " + Get().String() + "\n"
}
