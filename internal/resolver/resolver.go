package resolver

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/exprbox/exprbox/internal/boundary"
)

// Resolver answers the three boundary primitives from an in-memory
// snapshot. It is read-only and safe for concurrent use once built.
type Resolver struct {
	snap    *Snapshot
	env     *EnvFilter
	itemIdx int
	hasItem bool
	roots   map[string]any
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithEnvPatterns restricts $env access to variables matching the given
// glob patterns.
func WithEnvPatterns(patterns []string) Option {
	return func(r *Resolver) {
		r.env = NewEnvFilter(patterns)
	}
}

// WithItemIndex evaluates against the given item instead of the one the
// snapshot was stored with.
func WithItemIndex(idx int) Option {
	return func(r *Resolver) {
		r.itemIdx = idx
		r.hasItem = true
	}
}

// New builds a resolver over snap.
func New(snap *Snapshot, opts ...Option) *Resolver {
	r := &Resolver{
		snap: snap,
		env:  NewEnvFilter(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.roots = r.buildRoots()
	return r
}

func (r *Resolver) itemIndex() int {
	if r.hasItem {
		return r.itemIdx
	}
	return r.snap.ItemIndex
}

func (r *Resolver) currentItem() *Item {
	idx := r.itemIndex()
	if idx < 0 || idx >= len(r.snap.Items) {
		return nil
	}
	return &r.snap.Items[idx]
}

// ResolveValue implements boundary.Calls.
func (r *Resolver) ResolveValue(path boundary.Path) (any, error) {
	v, err := r.valueAt(path)
	if err != nil {
		return nil, err
	}
	return r.classify(v, path), nil
}

// ResolveElement implements boundary.Calls. The path must address an
// array; out-of-range indices resolve to undefined.
func (r *Resolver) ResolveElement(path boundary.Path, index int) (any, error) {
	v, err := r.valueAt(path)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("resolve element: %s is not an array", path)
	}
	if index < 0 || index >= len(arr) {
		return boundary.Undefined, nil
	}
	return r.classify(arr[index], path.Child(strconv.Itoa(index))), nil
}

// InvokeFunction implements boundary.Calls. The return value crosses the
// boundary as data, never as a proxy.
func (r *Resolver) InvokeFunction(path boundary.Path, args []any) (any, error) {
	v, err := r.valueAt(path)
	if err != nil {
		return nil, err
	}
	fn, ok := v.(HostFunc)
	if !ok {
		return nil, fmt.Errorf("invoke: %s is not a function", path)
	}
	return fn(args)
}

// valueAt walks the graph to the raw value at path. A missing final
// segment yields the Undefined marker; a missing or untraversable
// intermediate segment is an error, since proxies only ever extend paths
// they successfully resolved.
func (r *Resolver) valueAt(path boundary.Path) (any, error) {
	if len(path) == 0 {
		return nil, errors.New("resolve: empty path")
	}

	cur, ok := r.roots[path[0]]
	if !ok {
		return nil, fmt.Errorf("resolve: unknown namespace %q", path[0])
	}

	if path[0] == "$env" && len(path) > 1 {
		if !r.env.Allowed(path[1]) {
			return nil, fmt.Errorf("access to environment variable %q is not permitted", path[1])
		}
	}

	for i := 1; i < len(path); i++ {
		next, err := member(cur, path, i)
		if err != nil {
			return nil, err
		}
		if boundary.IsUndefined(next) {
			if i == len(path)-1 {
				return boundary.Undefined, nil
			}
			return nil, fmt.Errorf("resolve %s: %s is undefined", path, path[:i+1])
		}
		cur = next
	}

	return cur, nil
}

func member(cur any, path boundary.Path, i int) (any, error) {
	seg := path[i]
	switch node := cur.(type) {
	case map[string]any:
		v, ok := node[seg]
		if !ok {
			return boundary.Undefined, nil
		}
		return v, nil
	case map[string]string:
		v, ok := node[seg]
		if !ok {
			return boundary.Undefined, nil
		}
		return v, nil
	case []any:
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(node) {
			return boundary.Undefined, nil
		}
		return node[idx], nil
	case HostFunc:
		return nil, fmt.Errorf("resolve %s: %s is a function, not an object", path, path[:i])
	case nil:
		return nil, fmt.Errorf("resolve %s: %s is null", path, path[:i])
	default:
		return nil, fmt.Errorf("resolve %s: %s is a primitive", path, path[:i])
	}
}

// classify converts a raw graph value into its boundary representation:
// primitives pass through, containers and functions become descriptors.
func (r *Resolver) classify(v any, path boundary.Path) any {
	if boundary.IsUndefined(v) {
		return boundary.Undefined
	}

	switch node := v.(type) {
	case nil:
		return nil
	case HostFunc:
		return boundary.FunctionOf(path.Leaf())
	case map[string]any:
		return boundary.ObjectOf(sortedKeys(node)...)
	case map[string]string:
		if path.Root() == "$env" && len(path) == 1 {
			return boundary.ObjectOf(r.env.FilterNames(node)...)
		}
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return boundary.ObjectOf(keys...)
	case []any:
		return boundary.ArrayOf(len(node))
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
