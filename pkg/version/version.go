// Package version exposes the build version of the drip binary.
package version

// Version is overridden at build time via
// -ldflags "-X github.com/dripsql/drip/pkg/version.Version=v1.2.3".
//
//nolint:gochecknoglobals // Set once by the linker, read-only afterwards.
var Version = "dev"

// GetVersion returns the version string baked into the binary.
func GetVersion() string {
	return Version
}
