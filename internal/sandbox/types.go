package sandbox

import (
	"time"
)

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Execution timeout
	MaxCallStack  int           // Maximum JS call stack depth
	EnableConsole bool          // Allow console.log/warn/error
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Return value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
	Error    error         // Execution error
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error
	Message string    // Log message
	Time    time.Time // Timestamp
}

// DefaultConfig returns a configuration suitable for untrusted app code.
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		MaxCallStack:  1024,
		EnableConsole: true,
	}
}
