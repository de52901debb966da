package config

// Check defaults.
const (
	DefaultSentinelName   = "TYPE_CHECKING"
	DefaultSentinelModule = "typing"
	DefaultIncludeHidden  = false
	DefaultMaxFileSize    = "1MB"
	DefaultWorkers        = 0
	DefaultNoQA           = true
)

// Output defaults.
const (
	DefaultFormat = FormatText
	DefaultColor  = ColorAuto
)

// Logging defaults.
const (
	DefaultLogLevel = "warn"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultMetricsAddr  = ""
)
