// Package http implements the control-plane and data-plane REST API.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/exprbox/exprbox/internal/boundary"
	"github.com/exprbox/exprbox/internal/engine"
	"github.com/exprbox/exprbox/internal/infrastructure/logging"
	"github.com/exprbox/exprbox/internal/infrastructure/monitoring"
	"github.com/exprbox/exprbox/internal/resolver"
	"github.com/exprbox/exprbox/internal/resolver/remote"
	"github.com/exprbox/exprbox/internal/sandbox"
)

// Handlers carries the dependencies shared by all routes.
type Handlers struct {
	engine      *engine.Engine
	store       *resolver.Store
	logger      *logging.Logger
	metrics     *monitoring.Metrics
	envPatterns []string
	started     time.Time
}

// NewHandlers wires the route handlers.
func NewHandlers(
	eng *engine.Engine,
	store *resolver.Store,
	logger *logging.Logger,
	metrics *monitoring.Metrics,
	envPatterns []string,
) *Handlers {
	return &Handlers{
		engine:      eng,
		store:       store,
		logger:      logger.Named("api"),
		metrics:     metrics,
		envPatterns: envPatterns,
		started:     time.Now(),
	}
}

// Register mounts all routes on the router group.
func (h *Handlers) Register(r *gin.RouterGroup) {
	r.POST("/evaluate", h.Evaluate)
	r.GET("/stats", h.Stats)

	r.POST("/executions", h.CreateExecution)
	r.GET("/executions", h.ListExecutions)
	r.PUT("/executions/:id", h.PutExecution)
	r.GET("/executions/:id", h.GetExecution)
	r.DELETE("/executions/:id", h.DeleteExecution)

	r.POST("/executions/:id/data/resolve", h.DataResolve)
	r.POST("/executions/:id/data/element", h.DataElement)
	r.POST("/executions/:id/data/invoke", h.DataInvoke)
}

// RemoteSpec points an evaluation at another instance's data plane.
type RemoteSpec struct {
	BaseURL     string `json:"baseUrl" binding:"required"`
	ExecutionID string `json:"executionId" binding:"required"`
	Token       string `json:"token"`
}

// EvaluateRequest is the control-plane evaluation payload. Exactly one
// data source must be given: an inline snapshot, a stored execution id,
// or a remote data plane.
type EvaluateRequest struct {
	Expression  string             `json:"expression" binding:"required"`
	Snapshot    *resolver.Snapshot `json:"snapshot"`
	ExecutionID string             `json:"executionId"`
	Remote      *RemoteSpec        `json:"remote"`
	ItemIndex   *int               `json:"itemIndex"`
}

// EvaluateResponse reports a successful evaluation.
type EvaluateResponse struct {
	ID         string             `json:"id"`
	Value      any                `json:"value"`
	Console    []sandbox.LogEntry `json:"console"`
	DurationMS float64            `json:"durationMs"`
}

// Evaluate runs one expression against the requested data source.
func (h *Handlers) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	calls, ok := h.callsFor(c, &req)
	if !ok {
		return
	}

	eval, err := h.engine.Evaluate(c.Request.Context(), engine.Request{
		Expression: req.Expression,
		Calls:      calls,
	})
	if err != nil {
		status, kind := statusFor(err)
		c.JSON(status, gin.H{"error": err.Error(), "kind": string(kind)})
		return
	}

	c.JSON(http.StatusOK, EvaluateResponse{
		ID:         eval.ID.String(),
		Value:      eval.Value,
		Console:    eval.Console,
		DurationMS: float64(eval.Duration.Microseconds()) / 1000.0,
	})
}

// callsFor builds the boundary wiring for a request. On failure it writes
// the error response and returns false.
func (h *Handlers) callsFor(c *gin.Context, req *EvaluateRequest) (boundary.Calls, bool) {
	sources := 0
	if req.Snapshot != nil {
		sources++
	}
	if req.ExecutionID != "" {
		sources++
	}
	if req.Remote != nil {
		sources++
	}
	if sources != 1 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "exactly one of snapshot, executionId, or remote is required",
		})
		return nil, false
	}

	if req.Remote != nil {
		return remote.New(remote.Config{
			BaseURL:     req.Remote.BaseURL,
			ExecutionID: req.Remote.ExecutionID,
			Token:       req.Remote.Token,
			RetryMax:    2,
		}), true
	}

	snap := req.Snapshot
	if snap == nil {
		stored, ok := h.store.Get(req.ExecutionID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "unknown execution " + req.ExecutionID,
			})
			return nil, false
		}
		snap = stored
	} else {
		snap.Normalize()
	}

	opts := []resolver.Option{resolver.WithEnvPatterns(h.envPatterns)}
	if req.ItemIndex != nil {
		opts = append(opts, resolver.WithItemIndex(*req.ItemIndex))
	}
	return resolver.New(snap, opts...), true
}

func statusFor(err error) (int, engine.Kind) {
	kind := engine.KindOf(err)
	switch kind {
	case engine.KindCompile:
		return http.StatusBadRequest, kind
	case engine.KindTimeout:
		return http.StatusRequestTimeout, kind
	case engine.KindExpression:
		return http.StatusUnprocessableEntity, kind
	case engine.KindUnavailable:
		return http.StatusServiceUnavailable, kind
	default:
		return http.StatusInternalServerError, kind
	}
}

// Stats reports evaluation latency and pool occupancy.
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"evaluations": h.metrics.Durations.Summary(),
		"pool":        h.engine.PoolStats(),
		"snapshots":   h.store.Len(),
		"uptime_s":    time.Since(h.started).Seconds(),
	})
}

// Health is the liveness endpoint.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "exprbox",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
