// Package version exposes build information injected via ldflags, falling
// back to the VCS stamp the Go toolchain embeds.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the payload served on /version.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
}

func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fillFromVCS(&info, bi.Settings)
	}
	return info
}

// fillFromVCS fills fields ldflags left at their defaults.
func fillFromVCS(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

// Short returns the commit abbreviated to seven characters.
func (i Info) Short() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// String renders the build info for CLI output.
func (i Info) String() string {
	commit := i.Short()
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("startupia %s (%s, built %s, %s)", i.Version, commit, i.BuildTime, i.GoVersion)
}
