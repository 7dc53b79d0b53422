package sandbox

import "time"

// Config defines sandbox configuration
type Config struct {
	Timeout       time.Duration // Wall-clock budget for one run, sync phase and timers included
	MaxCallStack  int           // Maximum JS call stack depth
	EnableConsole bool          // Allow console.log/info/debug/warn/error capture
}

// Default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		MaxCallStack:  1024,
		EnableConsole: true,
	}
}

// LogEntry represents one captured console call
type LogEntry struct {
	Level   string    // log, info, debug, warn, error
	Message string    // Space-joined stringified arguments
	Time    time.Time // Capture timestamp
}

// Result holds execution result
type Result struct {
	Value       interface{}   // Completion value of the snippet, usually nil
	Console     []LogEntry    // Captured console output in call order
	Duration    time.Duration // Execution time
	Interrupted bool          // True when the run hit the timeout or was cancelled
	Error       *RunError     // Failure description, nil on success
}

// ErrorKind partitions run failures
type ErrorKind string

const (
	ErrSyntax    ErrorKind = "syntax"    // Source failed to compile
	ErrRuntime   ErrorKind = "runtime"   // Uncaught exception during execution
	ErrRejected  ErrorKind = "rejected"  // Snippet promise rejected
	ErrTimeout   ErrorKind = "timeout"   // Wall-clock budget exhausted
	ErrCancelled ErrorKind = "cancelled" // Caller context cancelled
	ErrSuspended ErrorKind = "suspended" // Pending forever with nothing left to run
)

// RunError describes why a run failed. Message is a single line suitable
// for direct display.
type RunError struct {
	Kind    ErrorKind
	Message string
}

func (e *RunError) Error() string { return e.Message }
