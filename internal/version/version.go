package version

// Version is the application version, overridden at build time with
// -ldflags "-X github.com/faaa888/Memoire-Analyse-Impact-M-A/internal/version.Version=..."
var Version = "0.3.0"
