package config

const SourceFileExt = ".lum"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".lum", ".lumen"}

// Engine sizing defaults. These are starting points for a fresh execution
// context; the hard ceilings live in Limits and can be overridden per VM.
const (
	// InitialStackSize is the slot count a fresh context allocates.
	InitialStackSize = 64

	// MinStack is the space guaranteed to a Go function on entry.
	MinStack = 20

	// DefaultMaxStack caps a single context's value stack.
	DefaultMaxStack = 1_000_000

	// DefaultMaxCallDepth caps the call-frame chain to stop runaway
	// recursion before the Go stack does.
	DefaultMaxCallDepth = 200
)

// ConfigFileName is the per-project configuration file the CLI looks for.
const ConfigFileName = "lumen.yaml"
