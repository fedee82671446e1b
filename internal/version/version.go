// Package version exposes the dockslot build version.
package version

import "runtime/debug"

var (
	// Version is set at build time with -ldflags. Falls back to the
	// module version embedded by go install.
	Version = "dev"
)

func init() {
	if Version != "dev" {
		return
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}
}
