package proxy

import (
	"math"

	"github.com/dop251/goja"
)

// helperProgram rebuilds the date globals so every evaluation observes its
// own start time.
var helperProgram = goja.MustCompile("helpers", `
var $now = new Date();
var $today = new Date($now.getFullYear(), $now.getMonth(), $now.getDate());
`, false)

// publishHelpers installs the convenience globals: $now, $today, $if,
// $min, $max. These are local to the sandbox and never touch the boundary.
func publishHelpers(rt *goja.Runtime) error {
	if _, err := rt.RunProgram(helperProgram); err != nil {
		return err
	}

	if err := rt.Set("$if", func(call goja.FunctionCall) goja.Value {
		if call.Argument(0).ToBoolean() {
			return call.Argument(1)
		}
		return call.Argument(2)
	}); err != nil {
		return err
	}

	if err := rt.Set("$min", func(call goja.FunctionCall) goja.Value {
		return pickNumber(rt, call, func(best, next float64) bool { return next < best })
	}); err != nil {
		return err
	}

	return rt.Set("$max", func(call goja.FunctionCall) goja.Value {
		return pickNumber(rt, call, func(best, next float64) bool { return next > best })
	})
}

func pickNumber(rt *goja.Runtime, call goja.FunctionCall, better func(best, next float64) bool) goja.Value {
	if len(call.Arguments) == 0 {
		return goja.Undefined()
	}

	best := math.NaN()
	for _, arg := range call.Arguments {
		n := arg.ToFloat()
		if math.IsNaN(n) {
			return rt.ToValue(math.NaN())
		}
		if math.IsNaN(best) || better(best, n) {
			best = n
		}
	}
	return rt.ToValue(best)
}
