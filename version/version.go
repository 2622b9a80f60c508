package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
)

const product = "brokerkit"

// Info represents version information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	IsRelease bool   `json:"is_release"`
}

// GetVersionInfo returns version information, filling the commit from the
// embedded VCS settings when ldflags did not set it.
func GetVersionInfo() *Info {
	info := &Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		IsRelease: Version != "dev",
	}

	if info.GitCommit == "" {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range buildInfo.Settings {
				if setting.Key == "vcs.revision" {
					info.GitCommit = setting.Value
				}
			}
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// UserAgent returns the User-Agent header value, e.g. "brokerkit/1.2.0 (go1.26.0)".
func UserAgent() string {
	info := GetVersionInfo()
	return fmt.Sprintf("%s/%s (%s)", product, info.Version, info.GoVersion)
}
