package version

// Version is the current version of raidgod.
// Use semantic versioning: MAJOR.MINOR.PATCH
const Version = "0.3.0"

// Commit is set at build time with -ldflags "-X .../version.Commit=<sha>"
var Commit = "unknown"

// String returns the version with the commit it was built from
func String() string {
	return Version + " (" + Commit + ")"
}
