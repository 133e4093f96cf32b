package proxy

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/exprbox/exprbox/internal/boundary"
)

// newFunction builds the invokable stand-in for a host-side function. The
// wrapper forwards exported arguments through the invoke primitive and
// converts the return value back into the sandbox. Callers cache it under
// its property key, which keeps the reference stable across reads.
func newFunction(rt *goja.Runtime, reg *boundary.Registry, path boundary.Path, name string) goja.Value {
	return rt.ToValue(func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}

		res, err := reg.Invoke(path, args)
		if err != nil {
			panic(rt.NewGoError(fmt.Errorf("%s: %w", name, err)))
		}
		return rawValue(rt, res)
	})
}
