package proxy

import (
	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

// materialize shapes a boundary resolution result into its sandbox value.
// Primitives convert directly; descriptors become the matching lazy
// stand-in rooted at path.
func materialize(rt *goja.Runtime, reg *boundary.Registry, path boundary.Path, res any) goja.Value {
	if boundary.IsUndefined(res) {
		return goja.Undefined()
	}
	if res == nil {
		return goja.Null()
	}
	if d, ok := boundary.AsDescriptor(res); ok {
		switch d.Kind {
		case boundary.KindFunction:
			return newFunction(rt, reg, path, d.Name)
		case boundary.KindArray:
			return newArray(rt, reg, path, d.Length).self
		case boundary.KindObject:
			return newObject(rt, reg, path, d.Keys).self
		}
	}
	return rt.ToValue(res)
}

// rawValue converts a boundary result without descriptor interpretation.
// Used where the contract stores whatever the host returned, such as the
// directly-fetched scalar globals.
func rawValue(rt *goja.Runtime, res any) goja.Value {
	if boundary.IsUndefined(res) {
		return goja.Undefined()
	}
	if res == nil {
		return goja.Null()
	}
	return rt.ToValue(res)
}
