// Package version reports the build version of the typimports binary.
package version

import (
	"runtime/debug"
	"sync"
)

// Build metadata, overridden at link time with
// -ldflags "-X github.com/Sumatoshi-tech/typimports/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // Set by the linker.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

const (
	develVersion  = "(devel)"
	settingCommit = "vcs.revision"
	settingTime   = "vcs.time"
	shortHashLen  = 12
)

var initOnce sync.Once //nolint:gochecknoglobals // Guards build info lookup.

// InitBinaryVersion fills unset metadata from the embedded build info, so
// "go install"ed binaries report their module version.
func InitBinaryVersion() {
	initOnce.Do(func() {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}

		if Version == "dev" && info.Main.Version != "" && info.Main.Version != develVersion {
			Version = info.Main.Version
		}

		for _, setting := range info.Settings {
			switch setting.Key {
			case settingCommit:
				if Commit == "none" {
					Commit = shorten(setting.Value)
				}
			case settingTime:
				if Date == "unknown" {
					Date = setting.Value
				}
			}
		}
	})
}

// String renders the version line printed by "typimports version".
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}

func shorten(hash string) string {
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}

	return hash
}
