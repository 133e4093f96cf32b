package sandbox

import (
	"context"
	"time"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

// Config defines sandbox configuration.
type Config struct {
	// Timeout for a single evaluation.
	Timeout time.Duration
	// MaxCallStack limits goja call stack depth (0 = engine default).
	MaxCallStack int
	// EnableConsole captures console.log/warn/error output.
	EnableConsole bool
	// PoolSize is the number of pooled runtimes.
	PoolSize int
	// AcquireTimeout bounds the wait for a pooled runtime.
	AcquireTimeout time.Duration
}

// DefaultConfig returns sensible defaults for expression evaluation.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxCallStack:   1024,
		EnableConsole:  true,
		PoolSize:       4,
		AcquireTimeout: 2 * time.Second,
	}
}

// Result contains the outcome of one evaluation.
type Result struct {
	// Value is the exported completion value of the expression.
	Value any
	// Console holds captured console output in emission order.
	Console []LogEntry
	// Duration is the wall time spent inside the runtime.
	Duration time.Duration
	// Error holds the failure, if any. Also returned by Execute.
	Error error
}

// LogEntry is one captured console call.
type LogEntry struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Evaluator executes expressions against a boundary registry.
type Evaluator interface {
	// Execute compiles and runs source with the given boundary wiring.
	Execute(ctx context.Context, source string, reg *boundary.Registry) (*Result, error)
	// ExecuteProgram runs a precompiled program with the given wiring.
	ExecuteProgram(ctx context.Context, prog *goja.Program, reg *boundary.Registry) (*Result, error)
	// Reset restores the runtime to a clean state.
	Reset() error
	// Close releases runtime resources.
	Close() error
}
