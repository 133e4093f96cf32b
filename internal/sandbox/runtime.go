package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
	"github.com/exprbox/exprbox/internal/sandbox/proxy"
)

// Runtime wraps a goja VM hardened for untrusted expression code. Module
// and process globals are stubbed out, timers are inert, and every
// evaluation runs under an interrupt-based deadline.
//
// A Runtime is not safe for concurrent evaluations; the pool hands each
// one to a single caller at a time.
type Runtime struct {
	mu     sync.Mutex
	vm     *goja.Runtime
	config Config

	consoleMu sync.Mutex
	console   []LogEntry
}

// NewRuntime creates a hardened runtime.
func NewRuntime(config Config) (*Runtime, error) {
	r := &Runtime{
		vm:     goja.New(),
		config: config,
	}
	if err := r.setupGlobals(); err != nil {
		return nil, fmt.Errorf("setup sandbox globals: %w", err)
	}
	return r, nil
}

// Execute compiles source and runs it with the given boundary wiring.
func (r *Runtime) Execute(ctx context.Context, source string, reg *boundary.Registry) (*Result, error) {
	prog, err := Compile(source)
	if err != nil {
		return nil, err
	}
	return r.ExecuteProgram(ctx, prog, reg)
}

// ExecuteProgram runs a precompiled program with the given boundary
// wiring. A fresh proxy scope is built and published before the program
// runs, so nothing from the previous evaluation on this runtime is
// reachable.
func (r *Runtime) ExecuteProgram(ctx context.Context, prog *goja.Program, reg *boundary.Registry) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, fmt.Errorf("runtime is closed")
	}

	scope, err := proxy.NewScope(r.vm, reg)
	if err != nil {
		return nil, err
	}
	if err := scope.Publish(r.vm); err != nil {
		return nil, fmt.Errorf("publish scope: %w", err)
	}

	r.clearConsole()
	start := time.Now()

	timeout := r.config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("evaluation timed out")
		case <-ctx.Done():
			r.vm.Interrupt("evaluation cancelled")
		case <-done:
		}
	}()

	value, runErr := r.vm.RunProgram(prog)
	close(done)
	r.vm.ClearInterrupt()

	result := &Result{
		Duration: time.Since(start),
		Console:  r.drainConsole(),
	}
	if runErr != nil {
		result.Error = runErr
		return result, runErr
	}

	result.Value = exportValue(value)
	return result, nil
}

// Reset replaces the VM wholesale. Cheaper bookkeeping than scrubbing
// globals, and guarantees no state survives.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = goja.New()
	r.clearConsole()
	return r.setupGlobals()
}

// Close releases the runtime.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	return nil
}

func (r *Runtime) setupGlobals() error {
	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}

	// No module system, no process access.
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "info", "warn", "error"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	// Evaluation is synchronous end to end; timers are accepted but inert.
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	if err := r.vm.Set("setTimeout", noop); err != nil {
		return err
	}
	return r.vm.Set("setInterval", noop)
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: strings.Join(parts, " "),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

func (r *Runtime) clearConsole() {
	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()
}

func (r *Runtime) drainConsole() []LogEntry {
	r.consoleMu.Lock()
	defer r.consoleMu.Unlock()

	out := r.console
	r.console = nil
	if out == nil {
		out = []LogEntry{}
	}
	return out
}

// Compile parses an expression into a reusable program. Expressions are
// evaluated as scripts, so the completion value of the last statement is
// the result; wrap object literals in parentheses.
func Compile(source string) (*goja.Program, error) {
	prog, err := goja.Compile("expression", source, false)
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return prog, nil
}

// exportValue converts a goja value to a plain Go value.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
