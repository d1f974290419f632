package version

// Version is the service version.
// Overridden at build time through -ldflags "-X github.com/hrygo/tutorvoice/internal/version.Version=...".
var Version = "0.1.0"

// GetCurrentVersion returns the version string reported by the server for the given mode.
func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return Version + "-dev"
	}
	return Version
}
