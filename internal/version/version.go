// ABOUTME: Version and product constants
// ABOUTME: Version is overridable at link time with -ldflags "-X .../version.Version=..."
package version

// Version of the wavplay binaries
var Version = "0.3.0"

const (
	// Product is the user-facing program name
	Product = "wavplay"

	// Manufacturer appears in --version output
	Manufacturer = "Resonate"
)

// String renders "wavplay 0.3.0 (Resonate)"
func String() string {
	return Product + " " + Version + " (" + Manufacturer + ")"
}
