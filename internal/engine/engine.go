// Package engine ties compilation, pooled sandboxes, and boundary wiring
// into the evaluation entry point the API layers call.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/exprbox/exprbox/internal/boundary"
	"github.com/exprbox/exprbox/internal/infrastructure/logging"
	"github.com/exprbox/exprbox/internal/infrastructure/monitoring"
	"github.com/exprbox/exprbox/internal/sandbox"
	"github.com/exprbox/exprbox/internal/shared/id"
)

// maxCachedPrograms bounds the compile cache. Preview sessions re-send
// the same source on every keystroke, which is exactly what this absorbs.
const maxCachedPrograms = 1024

// Request is one expression evaluation.
type Request struct {
	// Expression is the JavaScript source to evaluate.
	Expression string
	// Calls provides the boundary primitives for this evaluation.
	Calls boundary.Calls
}

// Evaluation is the outcome of a successful run.
type Evaluation struct {
	ID       id.EvaluationID    `json:"id"`
	Value    any                `json:"value"`
	Console  []sandbox.LogEntry `json:"console"`
	Duration time.Duration      `json:"duration"`
}

// Engine evaluates expressions on pooled runtimes with per-evaluation
// boundary wiring.
type Engine struct {
	pool    *sandbox.Pool
	logger  *logging.Logger
	metrics *monitoring.Metrics

	cacheMu  sync.RWMutex
	programs map[string]*goja.Program
}

// New creates an engine. Metrics may be nil.
func New(pool *sandbox.Pool, logger *logging.Logger, metrics *monitoring.Metrics) *Engine {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		pool:     pool,
		logger:   logger.Named("engine"),
		metrics:  metrics,
		programs: make(map[string]*goja.Program),
	}
}

// Evaluate runs one expression on a pooled runtime.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Evaluation, error) {
	rt, err := e.pool.Acquire(ctx)
	if err != nil {
		e.record("unavailable", 0)
		return nil, classify(err)
	}
	defer e.pool.Release(rt)

	return e.EvaluateOn(ctx, rt, req)
}

// EvaluateOn runs one expression on a caller-held runtime. Preview
// sessions pin a runtime for their lifetime and call this directly.
func (e *Engine) EvaluateOn(ctx context.Context, rt sandbox.Evaluator, req Request) (*Evaluation, error) {
	prog, err := e.compile(req.Expression)
	if err != nil {
		e.record("compile_error", 0)
		return nil, &Error{Kind: KindCompile, Err: err}
	}

	reg := boundary.NewRegistry()
	calls := req.Calls
	if e.metrics != nil && calls != nil {
		calls = monitoring.InstrumentCalls(e.metrics, calls)
	}
	if calls != nil {
		reg.Bind(calls)
	}

	result, err := rt.ExecuteProgram(ctx, prog, reg)
	if err != nil {
		duration := time.Duration(0)
		if result != nil {
			duration = result.Duration
		}
		cerr := classify(err)
		e.record(string(cerr.Kind), duration)
		e.logger.Debug("evaluation failed",
			zap.String("kind", string(cerr.Kind)),
			zap.Error(err))
		return nil, cerr
	}

	e.record("ok", result.Duration)

	return &Evaluation{
		ID:       id.NewEvaluationID(),
		Value:    result.Value,
		Console:  result.Console,
		Duration: result.Duration,
	}, nil
}

// Compile validates an expression without running it.
func (e *Engine) Compile(source string) error {
	_, err := e.compile(source)
	if err != nil {
		return &Error{Kind: KindCompile, Err: err}
	}
	return nil
}

// PoolStats reports runtime pool occupancy.
func (e *Engine) PoolStats() map[string]any {
	return e.pool.Stats()
}

func (e *Engine) compile(source string) (*goja.Program, error) {
	e.cacheMu.RLock()
	prog, ok := e.programs[source]
	e.cacheMu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := sandbox.Compile(source)
	if err != nil {
		return nil, err
	}

	e.cacheMu.Lock()
	if len(e.programs) >= maxCachedPrograms {
		e.programs = make(map[string]*goja.Program)
	}
	e.programs[source] = prog
	e.cacheMu.Unlock()

	return prog, nil
}

func (e *Engine) record(status string, duration time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordEvaluation(status, duration)
}
