// Package buildinfo provides build version and metadata information.
package buildinfo

import "runtime/debug"

// Version metadata is injected at build time via ldflags.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Summary returns a human-readable version summary string. Builds without
// ldflags fall back to the module version and VCS revision recorded by the
// Go toolchain.
func Summary() string {
	version, commit, date := Version, Commit, Date
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
				version = info.Main.Version
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					commit = shortRevision(s.Value)
				case "vcs.time":
					if date == "" {
						date = s.Value
					}
				}
			}
		}
	}
	parts := version
	if commit != "" {
		parts += " (" + commit
		if date != "" {
			parts += " " + date
		}
		parts += ")"
	} else if date != "" {
		parts += " (" + date + ")"
	}
	return parts
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
