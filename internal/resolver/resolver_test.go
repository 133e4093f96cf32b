package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exprbox/exprbox/internal/boundary"
)

func testSnapshot() *Snapshot {
	snap := &Snapshot{
		Workflow: WorkflowInfo{ID: "wf_1", Name: "Order Sync", Active: true},
		Node:     NodeInfo{Name: "Transform", Type: "transform", TypeVersion: 2},
		Parameters: map[string]any{
			"mode":  "strict",
			"limit": float64(10),
		},
		Items: []Item{
			{JSON: map[string]any{
				"name":    "Ada",
				"tags":    []any{"a", "b", "c"},
				"meta":    map[string]any{"active": true},
				"missing": nil,
				"records": []any{map[string]any{"id": float64(1)}},
			}},
			{JSON: map[string]any{"name": "Grace"}},
		},
		PrevNode:  PrevNodeInfo{Name: "HTTP Request"},
		RunIndex:  1,
		ItemIndex: 0,
		Env:       map[string]string{"API_KEY": "secret", "REGION": "eu-west-1"},
		Data:      map[string]any{"shared": "yes"},
	}
	snap.Normalize()
	return snap
}

func resolve(t *testing.T, r *Resolver, segments ...string) any {
	t.Helper()
	v, err := r.ResolveValue(boundary.NewPath(segments...))
	require.NoError(t, err)
	return v
}

func TestResolveValuePrimitives(t *testing.T) {
	r := New(testSnapshot())

	assert.Equal(t, "Ada", resolve(t, r, "$json", "name"))
	assert.Equal(t, true, resolve(t, r, "$json", "meta", "active"))
	assert.Equal(t, 1, resolve(t, r, "$runIndex"))
	assert.Equal(t, 0, resolve(t, r, "$itemIndex"))
	assert.Equal(t, "strict", resolve(t, r, "$parameter", "mode"))
	assert.Equal(t, float64(10), resolve(t, r, "$parameter", "limit"))
	assert.Equal(t, "yes", resolve(t, r, "$data", "shared"))
	assert.Equal(t, float64(1), resolve(t, r, "$json", "records", "0", "id"))
}

func TestResolveValueDescriptors(t *testing.T) {
	r := New(testSnapshot())

	d, ok := boundary.AsDescriptor(resolve(t, r, "$json"))
	require.True(t, ok)
	assert.Equal(t, boundary.KindObject, d.Kind)
	assert.Equal(t, []string{"meta", "missing", "name", "records", "tags"}, d.Keys, "keys come back sorted")

	d, ok = boundary.AsDescriptor(resolve(t, r, "$json", "tags"))
	require.True(t, ok)
	assert.Equal(t, boundary.KindArray, d.Kind)
	assert.Equal(t, 3, d.Length)

	d, ok = boundary.AsDescriptor(resolve(t, r, "$input", "all"))
	require.True(t, ok)
	assert.Equal(t, boundary.KindFunction, d.Kind)
	assert.Equal(t, "all", d.Name)

	d, ok = boundary.AsDescriptor(resolve(t, r, "$items"))
	require.True(t, ok)
	assert.Equal(t, boundary.KindFunction, d.Kind)
	assert.Equal(t, "$items", d.Name)
}

func TestResolveValueMisses(t *testing.T) {
	r := New(testSnapshot())

	v, err := r.ResolveValue(boundary.NewPath("$json", "nope"))
	require.NoError(t, err, "a missing final segment is undefined, not an error")
	assert.True(t, boundary.IsUndefined(v))

	_, err = r.ResolveValue(boundary.NewPath("$json", "nope", "deeper"))
	assert.ErrorContains(t, err, "is undefined")

	_, err = r.ResolveValue(boundary.NewPath("$json", "name", "length"))
	assert.ErrorContains(t, err, "is a primitive")

	_, err = r.ResolveValue(boundary.NewPath("$json", "missing", "x"))
	assert.ErrorContains(t, err, "is null")

	_, err = r.ResolveValue(boundary.NewPath("$input", "all", "x"))
	assert.ErrorContains(t, err, "is a function")

	_, err = r.ResolveValue(boundary.NewPath("$bogus"))
	assert.ErrorContains(t, err, "unknown namespace")

	_, err = r.ResolveValue(boundary.Path{})
	assert.ErrorContains(t, err, "empty path")
}

func TestNullIsNotUndefined(t *testing.T) {
	r := New(testSnapshot())

	v := resolve(t, r, "$json", "missing")
	assert.Nil(t, v)
	assert.False(t, boundary.IsUndefined(v))
}

func TestResolveElement(t *testing.T) {
	r := New(testSnapshot())
	tags := boundary.NewPath("$json", "tags")

	v, err := r.ResolveElement(tags, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", v)

	v, err = r.ResolveElement(tags, 99)
	require.NoError(t, err)
	assert.True(t, boundary.IsUndefined(v), "out of range is undefined")

	v, err = r.ResolveElement(tags, -1)
	require.NoError(t, err)
	assert.True(t, boundary.IsUndefined(v))

	_, err = r.ResolveElement(boundary.NewPath("$json", "name"), 0)
	assert.ErrorContains(t, err, "is not an array")

	v, err = r.ResolveElement(boundary.NewPath("$json", "records"), 0)
	require.NoError(t, err)
	d, ok := boundary.AsDescriptor(v)
	require.True(t, ok)
	assert.Equal(t, boundary.KindObject, d.Kind)
	assert.Equal(t, []string{"id"}, d.Keys)
}

func TestInvokeInput(t *testing.T) {
	r := New(testSnapshot())

	v, err := r.InvokeFunction(boundary.NewPath("$input", "all"), nil)
	require.NoError(t, err)
	items, ok := v.([]any)
	require.True(t, ok, "invoke results cross the boundary as plain data")
	require.Len(t, items, 2)

	first, err := r.InvokeFunction(boundary.NewPath("$input", "first"), nil)
	require.NoError(t, err)
	fm := first.(map[string]any)
	assert.Equal(t, "Ada", fm["json"].(map[string]any)["name"])

	last, err := r.InvokeFunction(boundary.NewPath("$input", "last"), nil)
	require.NoError(t, err)
	lm := last.(map[string]any)
	assert.Equal(t, "Grace", lm["json"].(map[string]any)["name"])

	_, err = r.InvokeFunction(boundary.NewPath("$json"), nil)
	assert.ErrorContains(t, err, "is not a function")
}

func TestInvokeInputEmptySnapshot(t *testing.T) {
	snap := &Snapshot{}
	snap.Normalize()
	r := New(snap)

	v, err := r.InvokeFunction(boundary.NewPath("$input", "first"), nil)
	require.NoError(t, err)
	assert.True(t, boundary.IsUndefined(v))

	v, err = r.InvokeFunction(boundary.NewPath("$input", "last"), nil)
	require.NoError(t, err)
	assert.True(t, boundary.IsUndefined(v))

	v, err = r.InvokeFunction(boundary.NewPath("$input", "all"), nil)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestItemsGlobal(t *testing.T) {
	r := New(testSnapshot())

	v, err := r.InvokeFunction(boundary.NewPath("$items"), nil)
	require.NoError(t, err)
	require.Len(t, v, 2)

	_, err = r.InvokeFunction(boundary.NewPath("$items"), []any{"Other Node"})
	assert.ErrorContains(t, err, "not available in snapshot mode")
}

func TestEnvAccess(t *testing.T) {
	t.Run("denied by default", func(t *testing.T) {
		r := New(testSnapshot())
		_, err := r.ResolveValue(boundary.NewPath("$env", "API_KEY"))
		assert.ErrorContains(t, err, "not permitted")
	})

	t.Run("wildcard allows all", func(t *testing.T) {
		r := New(testSnapshot(), WithEnvPatterns([]string{"*"}))
		assert.Equal(t, "secret", resolve(t, r, "$env", "API_KEY"))
		assert.Equal(t, "eu-west-1", resolve(t, r, "$env", "REGION"))
	})

	t.Run("glob pattern", func(t *testing.T) {
		r := New(testSnapshot(), WithEnvPatterns([]string{"API_*"}))
		assert.Equal(t, "secret", resolve(t, r, "$env", "API_KEY"))

		_, err := r.ResolveValue(boundary.NewPath("$env", "REGION"))
		assert.ErrorContains(t, err, "not permitted")
	})

	t.Run("namespace keys are filtered", func(t *testing.T) {
		r := New(testSnapshot(), WithEnvPatterns([]string{"REGION"}))
		d, ok := boundary.AsDescriptor(resolve(t, r, "$env"))
		require.True(t, ok)
		assert.Equal(t, []string{"REGION"}, d.Keys)
	})
}

func TestWithItemIndexOverride(t *testing.T) {
	snap := testSnapshot()

	r := New(snap)
	assert.Equal(t, "Ada", resolve(t, r, "$json", "name"))

	r = New(snap, WithItemIndex(1))
	assert.Equal(t, "Grace", resolve(t, r, "$json", "name"))
	assert.Equal(t, 1, resolve(t, r, "$itemIndex"))

	r = New(snap, WithItemIndex(5))
	v, err := r.ResolveValue(boundary.NewPath("$json", "name"))
	require.NoError(t, err)
	assert.True(t, boundary.IsUndefined(v), "an out-of-range item has no data")
}

func TestInputViewShape(t *testing.T) {
	r := New(testSnapshot())

	d, ok := boundary.AsDescriptor(resolve(t, r, "$input"))
	require.True(t, ok)
	assert.Equal(t, []string{"all", "first", "item", "last"}, d.Keys)

	assert.Equal(t, "Ada", resolve(t, r, "$input", "item", "json", "name"))
}

func TestNodeAndWorkflowViews(t *testing.T) {
	r := New(testSnapshot())

	assert.Equal(t, "Transform", resolve(t, r, "$node", "name"))
	assert.Equal(t, 2, resolve(t, r, "$node", "typeVersion"))
	assert.Equal(t, "Order Sync", resolve(t, r, "$workflow", "name"))
	assert.Equal(t, true, resolve(t, r, "$workflow", "active"))
	assert.Equal(t, "HTTP Request", resolve(t, r, "$prevNode", "name"))

	d, ok := boundary.AsDescriptor(resolve(t, r, "$workflow"))
	require.True(t, ok)
	assert.Equal(t, []string{"active", "id", "name"}, d.Keys)
}

func TestBinaryAttachments(t *testing.T) {
	snap := &Snapshot{
		Items: []Item{{
			JSON: map[string]any{"name": "report"},
			Binary: map[string]*Attachment{
				// base64 of "hello world"
				"file": {Data: "aGVsbG8gd29ybGQ=", FileName: "report.txt"},
			},
		}},
	}
	snap.Normalize()
	r := New(snap)

	d, ok := boundary.AsDescriptor(resolve(t, r, "$binary"))
	require.True(t, ok)
	assert.Equal(t, []string{"file"}, d.Keys)

	assert.Equal(t, "report.txt", resolve(t, r, "$binary", "file", "fileName"))
	assert.Equal(t, int64(11), resolve(t, r, "$binary", "file", "fileSize"))

	mt, ok := resolve(t, r, "$binary", "file", "mimeType").(string)
	require.True(t, ok)
	assert.Contains(t, mt, "text/plain")
}
