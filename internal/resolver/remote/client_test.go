package remote

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exprbox/exprbox/internal/boundary"
	"github.com/exprbox/exprbox/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL:     srv.URL,
		ExecutionID: "exec_01",
		Timeout:     2 * time.Second,
	})
}

func writeResult(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	data, err := boundary.MarshalResult(v)
	assert.NoError(t, err)
	_, _ = w.Write(data)
}

func TestClientResolveValue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/executions/exec_01/data/resolve", r.URL.Path)

		var req boundary.ResolveRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"$json", "name"}, req.Path)

		writeResult(t, w, "Ada")
	})

	v, err := c.ResolveValue(boundary.NewPath("$json", "name"))
	require.NoError(t, err)
	assert.Equal(t, "Ada", v)
}

func TestClientResolveDescriptor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, boundary.ArrayOf(3))
	})

	v, err := c.ResolveValue(boundary.NewPath("$json", "tags"))
	require.NoError(t, err)

	d, ok := boundary.AsDescriptor(v)
	require.True(t, ok)
	assert.Equal(t, boundary.KindArray, d.Kind)
	assert.Equal(t, 3, d.Length)
}

func TestClientResolveUndefined(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeResult(t, w, boundary.Undefined)
	})

	v, err := c.ResolveValue(boundary.NewPath("$json", "nope"))
	require.NoError(t, err)
	assert.True(t, boundary.IsUndefined(v))
}

func TestClientResolveElement(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/executions/exec_01/data/element", r.URL.Path)

		var req boundary.ElementRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"$json", "tags"}, req.Path)
		assert.Equal(t, 2, req.Index)

		writeResult(t, w, "c")
	})

	v, err := c.ResolveElement(boundary.NewPath("$json", "tags"), 2)
	require.NoError(t, err)
	assert.Equal(t, "c", v)
}

func TestClientInvokeFunction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/executions/exec_01/data/invoke", r.URL.Path)

		var req boundary.InvokeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"$items"}, req.Path)
		assert.Equal(t, []any{"Other Node"}, req.Args)

		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(boundary.WireError{Error: "$items: lookup by node name is not available in snapshot mode"})
	})

	_, err := c.InvokeFunction(boundary.NewPath("$items"), []any{"Other Node"})
	assert.ErrorContains(t, err, "not available in snapshot mode")
}

func TestClientDataErrorNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(boundary.WireError{Error: "resolve $json.a.b: $json.a is undefined"})
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, ExecutionID: "exec_01", Timeout: 2 * time.Second, RetryMax: 2})

	_, err := c.ResolveValue(boundary.NewPath("$json", "a", "b"))
	assert.ErrorContains(t, err, "$json.a is undefined")
	assert.Equal(t, int32(1), hits.Load(), "4xx data errors must not retry")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeResult(t, w, "recovered")
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, ExecutionID: "exec_01", Timeout: 5 * time.Second, RetryMax: 2})

	v, err := c.ResolveValue(boundary.NewPath("$json", "x"))
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, int32(2), hits.Load())
}

func TestClientBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, ExecutionID: "exec_01", Timeout: 2 * time.Second})

	for i := 0; i < 3; i++ {
		_, err := c.ResolveValue(boundary.NewPath("$json", "x"))
		require.Error(t, err)
	}
	before := hits.Load()

	_, err := c.ResolveValue(boundary.NewPath("$json", "x"))
	assert.ErrorContains(t, err, "data plane unavailable")
	assert.ErrorIs(t, err, resilience.ErrOpen)
	assert.Equal(t, before, hits.Load(), "an open breaker must not reach the peer")
}

func TestClientSendsAuthToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		writeResult(t, w, true)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, ExecutionID: "exec_01", Token: "s3cret", Timeout: 2 * time.Second})

	v, err := c.ResolveValue(boundary.NewPath("$workflow", "active"))
	require.NoError(t, err)
	assert.Equal(t, true, v)
}
