package arbor

// Version is the arbor library version, overridable at build time with
// -ldflags "-X github.com/arborhq/arbor.Version=...".
var Version = "0.1.0"
