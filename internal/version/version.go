package version

// Overridden at build time with -ldflags "-X vigil/internal/version.COMMIT=...".
var (
	VERSION = "0.3.0"
	COMMIT  = "dev"
)
