package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/exprbox/exprbox/internal/boundary"
	"github.com/exprbox/exprbox/internal/resolver"
	"github.com/exprbox/exprbox/internal/shared/id"
)

// CreateExecution stores a snapshot under a generated execution id.
func (h *Handlers) CreateExecution(c *gin.Context) {
	var snap resolver.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	execID := id.NewExecutionID().String()
	h.store.Put(execID, &snap)
	h.metrics.SnapshotsLoaded.Set(float64(h.store.Len()))

	h.logger.Info("execution stored",
		zap.String("id", execID),
		zap.Int("items", len(snap.Items)))

	c.JSON(http.StatusCreated, gin.H{"id": execID, "items": len(snap.Items)})
}

// PutExecution stores a snapshot under a caller-chosen id.
func (h *Handlers) PutExecution(c *gin.Context) {
	execID := c.Param("id")

	var snap resolver.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.store.Put(execID, &snap)
	h.metrics.SnapshotsLoaded.Set(float64(h.store.Len()))

	c.JSON(http.StatusOK, gin.H{"id": execID, "items": len(snap.Items)})
}

// GetExecution returns a stored snapshot.
func (h *Handlers) GetExecution(c *gin.Context) {
	snap, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown execution"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// DeleteExecution removes a stored snapshot.
func (h *Handlers) DeleteExecution(c *gin.Context) {
	if !h.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown execution"})
		return
	}
	h.metrics.SnapshotsLoaded.Set(float64(h.store.Len()))
	c.Status(http.StatusNoContent)
}

// ListExecutions returns the stored execution ids.
func (h *Handlers) ListExecutions(c *gin.Context) {
	ids := h.store.List()
	c.JSON(http.StatusOK, gin.H{"executions": ids, "count": len(ids)})
}

// DataResolve serves the resolve-value boundary primitive for remote
// sandboxes.
func (h *Handlers) DataResolve(c *gin.Context) {
	var req boundary.ResolveRequest
	h.serveBoundary(c, &req, func(r *resolver.Resolver) (any, error) {
		return r.ResolveValue(boundary.NewPath(req.Path...))
	})
}

// DataElement serves the resolve-array-element boundary primitive.
func (h *Handlers) DataElement(c *gin.Context) {
	var req boundary.ElementRequest
	h.serveBoundary(c, &req, func(r *resolver.Resolver) (any, error) {
		return r.ResolveElement(boundary.NewPath(req.Path...), req.Index)
	})
}

// DataInvoke serves the invoke-function boundary primitive.
func (h *Handlers) DataInvoke(c *gin.Context) {
	var req boundary.InvokeRequest
	h.serveBoundary(c, &req, func(r *resolver.Resolver) (any, error) {
		return r.InvokeFunction(boundary.NewPath(req.Path...), req.Args)
	})
}

// serveBoundary decodes one data-plane request, runs it against the
// stored snapshot, and writes the wire envelope. Resolution failures are
// data errors, not server errors: they map to 422 so the remote side
// rethrows them inside the sandbox.
func (h *Handlers) serveBoundary(c *gin.Context, req any, run func(*resolver.Resolver) (any, error)) {
	snap, ok := h.store.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, boundary.WireError{Error: "unknown execution " + c.Param("id")})
		return
	}

	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, boundary.WireError{Error: err.Error()})
		return
	}

	res := resolver.New(snap, resolver.WithEnvPatterns(h.envPatterns))
	out, err := run(res)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, boundary.WireError{Error: err.Error()})
		return
	}

	body, err := boundary.MarshalResult(out)
	if err != nil {
		c.JSON(http.StatusInternalServerError, boundary.WireError{Error: err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}
