package proxy

import (
	"sort"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

// Reserved property names answered locally, without a boundary call.
const (
	propIsProxy = "__isProxy"
	propPath    = "__path"
)

// Object is a lazy view of a host-side object. Property reads resolve over
// the boundary on first access and are cached for the rest of the
// evaluation, so each distinct path crosses at most once.
//
// goja only routes string keys through DynamicObject, so symbol-keyed
// accesses never reach the host and read as undefined.
type Object struct {
	rt   *goja.Runtime
	reg  *boundary.Registry
	base boundary.Path

	// advertised holds the own keys announced by the descriptor that
	// produced this proxy; nil for root namespaces.
	advertised []string
	cache      map[string]goja.Value

	self      *goja.Object
	pathVal   goja.Value
	toStringV goja.Value
	valueOfV  goja.Value
}

// New builds a lazy object proxy rooted at base and returns its sandbox
// value. Use for root namespaces; nested proxies are built on demand.
func New(rt *goja.Runtime, reg *boundary.Registry, base boundary.Path) *goja.Object {
	return newObject(rt, reg, base, nil).self
}

func newObject(rt *goja.Runtime, reg *boundary.Registry, base boundary.Path, advertised []string) *Object {
	o := &Object{
		rt:         rt,
		reg:        reg,
		base:       base,
		advertised: advertised,
		cache:      make(map[string]goja.Value),
	}
	o.self = rt.NewDynamicObject(o)
	return o
}

// Get implements goja.DynamicObject.
func (o *Object) Get(key string) goja.Value {
	switch key {
	case propIsProxy:
		return o.rt.ToValue(true)
	case propPath:
		return o.path()
	case "toString":
		return o.toString()
	case "valueOf":
		return o.valueOf()
	}

	if v, ok := o.cache[key]; ok {
		return v
	}

	v := o.resolveKey(key)
	o.cache[key] = v
	return v
}

// Has implements goja.DynamicObject. Presence of a key not yet seen is
// decided by the same resolution as a read, and the result is cached so
// the follow-up read costs nothing.
func (o *Object) Has(key string) bool {
	switch key {
	case propIsProxy, propPath, "toString", "valueOf":
		return true
	}

	if _, ok := o.cache[key]; ok {
		return true
	}

	v := o.resolveKey(key)
	o.cache[key] = v
	return !goja.IsUndefined(v)
}

// Set implements goja.DynamicObject. The data graph is read-only.
func (o *Object) Set(key string, val goja.Value) bool {
	return false
}

// Delete implements goja.DynamicObject. The data graph is read-only.
func (o *Object) Delete(key string) bool {
	return false
}

// Keys implements goja.DynamicObject. Enumeration never crosses the
// boundary: only keys advertised by the host descriptor or already cached
// by earlier reads are visible.
func (o *Object) Keys() []string {
	seen := make(map[string]struct{}, len(o.advertised)+len(o.cache))
	keys := make([]string, 0, len(o.advertised)+len(o.cache))

	for _, k := range o.advertised {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	cached := make([]string, 0, len(o.cache))
	for k := range o.cache {
		if _, dup := seen[k]; dup {
			continue
		}
		if goja.IsUndefined(o.cache[k]) {
			continue
		}
		cached = append(cached, k)
	}
	sort.Strings(cached)

	return append(keys, cached...)
}

// Base returns the path this proxy is rooted at.
func (o *Object) Base() boundary.Path {
	return o.base
}

func (o *Object) resolveKey(key string) goja.Value {
	child := o.base.Child(key)
	res, err := o.reg.Resolve(child)
	if err != nil {
		panic(o.rt.NewGoError(err))
	}
	return materialize(o.rt, o.reg, child, res)
}

func (o *Object) path() goja.Value {
	if o.pathVal == nil {
		segments := make([]any, len(o.base))
		for i, s := range o.base {
			segments[i] = s
		}
		o.pathVal = o.rt.ToValue(segments)
	}
	return o.pathVal
}

// toString returns an inert local function so string coercion, template
// literals, and console formatting never trigger a boundary call.
func (o *Object) toString() goja.Value {
	if o.toStringV == nil {
		o.toStringV = o.rt.ToValue(func(goja.FunctionCall) goja.Value {
			return o.rt.ToValue("[object Object]")
		})
	}
	return o.toStringV
}

// valueOf returns an inert local function yielding the proxy itself, the
// standard no-op primitive conversion.
func (o *Object) valueOf() goja.Value {
	if o.valueOfV == nil {
		o.valueOfV = o.rt.ToValue(func(goja.FunctionCall) goja.Value {
			return o.self
		})
	}
	return o.valueOfV
}
