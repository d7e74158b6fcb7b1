package sandbox

import (
	"time"

	"github.com/penlabhq/penlab/internal/shared/types"
)

// Config defines sandbox execution limits.
type Config struct {
	Timeout      time.Duration // wall-clock budget for one evaluation
	MaxCallStack int           // goja call stack depth limit
}

// DefaultConfig returns the standard execution limits.
func DefaultConfig() Config {
	return Config{
		Timeout:      5 * time.Second,
		MaxCallStack: 1024,
	}
}

// Entry is one console call captured inside the sandbox. Timestamps are
// deliberately absent: they belong to the receiving side, which stamps the
// record at the moment it crosses the relay.
type Entry struct {
	Level   types.LogLevel
	Message string
}

// Result holds the outcome of one script evaluation.
type Result struct {
	Console  []Entry       // captured console output, in call order
	Duration time.Duration // evaluation wall time
	Err      error         // script failure (throw, timeout); never fatal to the host
}
