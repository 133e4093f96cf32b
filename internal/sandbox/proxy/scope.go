package proxy

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

// RootNamespaces are the dollar-prefixed globals backed by lazy object
// proxies. Building one never touches the boundary; data moves only when
// expression code reads into it.
var RootNamespaces = []string{
	"$json",
	"$binary",
	"$input",
	"$node",
	"$parameter",
	"$workflow",
	"$prevNode",
	"$data",
	"$env",
}

// ScalarGlobals are fetched eagerly at scope construction. They are plain
// values, not proxies.
var ScalarGlobals = []string{
	"$runIndex",
	"$itemIndex",
}

// ItemsGlobal is the callable that returns the current input items.
const ItemsGlobal = "$items"

// Scope holds the per-evaluation globals: one fresh proxy per root
// namespace plus the eagerly fetched scalars. Building a new Scope and
// publishing it is the reset that isolates consecutive evaluations sharing
// a runtime.
type Scope struct {
	entries map[string]goja.Value
	order   []string
}

// NewScope builds the evaluation scope against the wired registry.
//
// A registry without the resolve primitive is a host wiring bug and fails
// construction outright. Individual scalar fetch failures are recoverable
// and leave that global undefined.
func NewScope(rt *goja.Runtime, reg *boundary.Registry) (*Scope, error) {
	if !reg.HasResolve() {
		return nil, fmt.Errorf("build scope: %w", boundary.ErrNotRegistered)
	}

	s := &Scope{
		entries: make(map[string]goja.Value, len(RootNamespaces)+len(ScalarGlobals)+1),
	}

	for _, name := range RootNamespaces {
		s.put(name, New(rt, reg, boundary.NewPath(name)))
	}

	for _, name := range ScalarGlobals {
		s.put(name, fetchScalar(rt, reg, name))
	}

	s.put(ItemsGlobal, fetchCallable(rt, reg, ItemsGlobal))

	return s, nil
}

func (s *Scope) put(name string, v goja.Value) {
	s.entries[name] = v
	s.order = append(s.order, name)
}

// Get returns the scope value bound under name, or nil if absent.
func (s *Scope) Get(name string) goja.Value {
	return s.entries[name]
}

// Names returns the bound global names in construction order.
func (s *Scope) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Publish binds the scope entries and the helper globals into the
// runtime's global object, replacing whatever the previous evaluation
// left there.
func (s *Scope) Publish(rt *goja.Runtime) error {
	for _, name := range s.order {
		if err := rt.Set(name, s.entries[name]); err != nil {
			return fmt.Errorf("publish %s: %w", name, err)
		}
	}
	return publishHelpers(rt)
}

// fetchScalar resolves a scalar global directly. The result is stored raw:
// scalars are never proxied, and a failed fetch degrades to undefined
// rather than failing the whole scope.
func fetchScalar(rt *goja.Runtime, reg *boundary.Registry, name string) goja.Value {
	res, err := reg.Resolve(boundary.NewPath(name))
	if err != nil {
		return goja.Undefined()
	}
	return rawValue(rt, res)
}

// fetchCallable resolves a global expected to be a function. A function
// descriptor becomes an invokable wrapper; any other result is stored raw,
// and a failed fetch degrades to undefined.
func fetchCallable(rt *goja.Runtime, reg *boundary.Registry, name string) goja.Value {
	path := boundary.NewPath(name)
	res, err := reg.Resolve(path)
	if err != nil {
		return goja.Undefined()
	}
	if d, ok := boundary.AsDescriptor(res); ok && d.Kind == boundary.KindFunction {
		return newFunction(rt, reg, path, d.Name)
	}
	return rawValue(rt, res)
}
