package typeonly

import "slices"

// Defaults for [Options].
const (
	DefaultSentinelName   = "TYPE_CHECKING"
	DefaultSentinelModule = "typing"
)

// Options tunes guard recognition.
type Options struct {
	// SentinelName is the name whose bare use as an if-test marks a
	// type-checking guard.
	SentinelName string
	// SentinelModules are the modules the sentinel is imported from. Importing
	// the sentinel from one of them is never recorded.
	SentinelModules []string
}

// DefaultOptions returns options matching the standard typing module.
func DefaultOptions() Options {
	return Options{
		SentinelName:    DefaultSentinelName,
		SentinelModules: []string{DefaultSentinelModule},
	}
}

func (opts Options) normalized() Options {
	if opts.SentinelName == "" {
		opts.SentinelName = DefaultSentinelName
	}

	if len(opts.SentinelModules) == 0 {
		opts.SentinelModules = []string{DefaultSentinelModule}
	}

	return opts
}

func (opts Options) isSentinelImport(module, name string) bool {
	return name == opts.SentinelName && slices.Contains(opts.SentinelModules, module)
}
