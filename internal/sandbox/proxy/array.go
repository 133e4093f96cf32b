package proxy

import (
	"strconv"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

// Array is a lazy view of a host-side array whose length arrived with the
// descriptor. Elements resolve individually on first index access, so
// iteration protocols and bulk methods work but degrade to one boundary
// call per distinct index.
type Array struct {
	rt     *goja.Runtime
	reg    *boundary.Registry
	base   boundary.Path
	length int
	cache  map[int]goja.Value
	self   *goja.Object
}

func newArray(rt *goja.Runtime, reg *boundary.Registry, base boundary.Path, length int) *Array {
	a := &Array{
		rt:     rt,
		reg:    reg,
		base:   base,
		length: length,
		cache:  make(map[int]goja.Value),
	}
	a.self = rt.NewDynamicArray(a)
	return a
}

// Len implements goja.DynamicArray. The length is known locally and never
// re-queried.
func (a *Array) Len() int {
	return a.length
}

// Get implements goja.DynamicArray.
func (a *Array) Get(idx int) goja.Value {
	if idx < 0 || idx >= a.length {
		return goja.Undefined()
	}

	if v, ok := a.cache[idx]; ok {
		return v
	}

	res, err := a.reg.Element(a.base, idx)
	if err != nil {
		panic(a.rt.NewGoError(err))
	}

	v := materialize(a.rt, a.reg, a.base.Child(strconv.Itoa(idx)), res)
	a.cache[idx] = v
	return v
}

// Set implements goja.DynamicArray. The data graph is read-only.
func (a *Array) Set(idx int, val goja.Value) bool {
	return false
}

// SetLen implements goja.DynamicArray. The data graph is read-only.
func (a *Array) SetLen(size int) bool {
	return false
}

// Base returns the path this proxy is rooted at.
func (a *Array) Base() boundary.Path {
	return a.base
}
