package boundary

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotRegistered is returned when a primitive is called before the host
// wired it in. Hitting this during scope construction is a wiring bug, not
// a data error.
var ErrNotRegistered = errors.New("boundary primitive not registered")

// ResolveFunc resolves the value at path.
type ResolveFunc func(path Path) (any, error)

// ElementFunc resolves one element of the array at path.
type ElementFunc func(path Path, index int) (any, error)

// InvokeFunc invokes the function at path with already-exported arguments.
type InvokeFunc func(path Path, args []any) (any, error)

// Calls bundles the three synchronous primitives a host must provide for
// sandboxed code to read its data graph.
type Calls interface {
	ResolveValue(path Path) (any, error)
	ResolveElement(path Path, index int) (any, error)
	InvokeFunction(path Path, args []any) (any, error)
}

// Registry holds the wired primitives for one evaluation. A fresh registry
// per evaluation keeps host state from leaking between runs.
type Registry struct {
	mu      sync.RWMutex
	resolve ResolveFunc
	element ElementFunc
	invoke  InvokeFunc
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Bind wires all three primitives from a Calls implementation.
func (r *Registry) Bind(c Calls) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolve = c.ResolveValue
	r.element = c.ResolveElement
	r.invoke = c.InvokeFunction
}

// RegisterResolve wires the value resolution primitive.
func (r *Registry) RegisterResolve(fn ResolveFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolve = fn
}

// RegisterElement wires the array element primitive.
func (r *Registry) RegisterElement(fn ElementFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.element = fn
}

// RegisterInvoke wires the function invocation primitive.
func (r *Registry) RegisterInvoke(fn InvokeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoke = fn
}

// HasResolve reports whether value resolution is wired.
func (r *Registry) HasResolve() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve != nil
}

// Resolve calls the wired value resolution primitive.
func (r *Registry) Resolve(path Path) (any, error) {
	r.mu.RLock()
	fn := r.resolve
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("resolve %s: %w", path, ErrNotRegistered)
	}
	return fn(path)
}

// Element calls the wired array element primitive.
func (r *Registry) Element(path Path, index int) (any, error) {
	r.mu.RLock()
	fn := r.element
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("element %s[%d]: %w", path, index, ErrNotRegistered)
	}
	return fn(path, index)
}

// Invoke calls the wired function invocation primitive.
func (r *Registry) Invoke(path Path, args []any) (any, error) {
	r.mu.RLock()
	fn := r.invoke
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("invoke %s: %w", path, ErrNotRegistered)
	}
	return fn(path, args)
}

// funcCalls adapts three bare functions into a Calls implementation.
type funcCalls struct {
	resolve ResolveFunc
	element ElementFunc
	invoke  InvokeFunc
}

func (f funcCalls) ResolveValue(path Path) (any, error) {
	return f.resolve(path)
}

func (f funcCalls) ResolveElement(path Path, index int) (any, error) {
	return f.element(path, index)
}

func (f funcCalls) InvokeFunction(path Path, args []any) (any, error) {
	return f.invoke(path, args)
}

// CallsFromFuncs builds a Calls from bare functions, useful in tests.
func CallsFromFuncs(resolve ResolveFunc, element ElementFunc, invoke InvokeFunc) Calls {
	return funcCalls{resolve: resolve, element: element, invoke: invoke}
}
