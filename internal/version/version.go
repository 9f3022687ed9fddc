// Package version reports the build of the xtpl binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Set at build time with -ldflags "-X github.com/conneroisu/xtpl/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit,omitempty" yaml:"git_commit,omitempty"`
	Modified  bool      `json:"modified,omitempty" yaml:"modified,omitempty"`
	BuildTime time.Time `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
}

type vcsInfo struct {
	moduleVersion string
	revision      string
	modified      bool
	time          time.Time
}

var readVCS = sync.OnceValue(func() vcsInfo {
	var v vcsInfo
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if info.Main.Version != "(devel)" {
		v.moduleVersion = info.Main.Version
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			v.revision = setting.Value
		case "vcs.modified":
			v.modified = setting.Value == "true"
		case "vcs.time":
			v.time, _ = time.Parse(time.RFC3339, setting.Value)
		}
	}
	return v
})

// Get collects the build information, preferring values set with -ldflags
// over those recorded by the Go toolchain.
func Get() Info {
	vcs := readVCS()
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		Modified:  vcs.modified,
		BuildTime: parseBuildTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.GitCommit == "" {
		info.GitCommit = vcs.revision
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = vcs.time
	}
	if info.Version == "" || info.Version == "dev" {
		switch {
		case vcs.moduleVersion != "":
			info.Version = vcs.moduleVersion
		case len(info.GitCommit) >= 7:
			info.Version = "dev-" + info.GitCommit[:7]
		default:
			info.Version = "dev"
		}
	}
	return info
}

// GetShortVersion returns the version with an abbreviated commit, e.g.
// "v1.2.0 (abc1234)".
func GetShortVersion() string {
	info := Get()
	if len(info.GitCommit) < 7 || strings.HasPrefix(info.Version, "dev-") {
		return info.Version
	}
	return fmt.Sprintf("%s (%s)", info.Version, info.GitCommit[:7])
}

// IsRelease reports whether the binary was built from a tagged version.
func IsRelease() bool {
	return !strings.HasPrefix(Get().Version, "dev")
}

// String renders info one field per line.
func (info Info) String() string {
	lines := []string{"Version: " + info.Version}
	if info.GitCommit != "" {
		commit := info.GitCommit
		if info.Modified {
			commit += " (modified)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !info.BuildTime.IsZero() {
		lines = append(lines, "Built: "+info.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+info.GoVersion, "Platform: "+info.Platform)
	return strings.Join(lines, "\n")
}

func parseBuildTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
