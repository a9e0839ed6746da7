package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Build-time variables (set via ldflags).
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information. Commit and BuildTime fall back to
// the VCS stamp embedded by the go tool when ldflags did not set them.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.Commit == "unknown":
				info.Commit = shortCommit(s.Value)
			case s.Key == "vcs.time" && info.BuildTime == "unknown":
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// String returns a formatted version string.
func String() string {
	i := Get()
	return i.Version + " (commit: " + i.Commit + ", built: " + i.BuildTime + ", " + i.GoVersion + ")"
}

func shortCommit(c string) string {
	if len(c) > 12 {
		return c[:12]
	}
	return c
}
