package boundary

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// The wire envelope carries boundary traffic over HTTP when the resolver
// lives in another process. Descriptors keep their historical field names
// (isFunction/isArray/isObject) so existing clients keep working.

// ResolveRequest asks for the value at a path.
type ResolveRequest struct {
	Path []string `json:"path"`
}

// ElementRequest asks for one element of the array at a path.
type ElementRequest struct {
	Path  []string `json:"path"`
	Index int      `json:"index"`
}

// InvokeRequest asks to call the function at a path.
type InvokeRequest struct {
	Path []string `json:"path"`
	Args []any    `json:"args,omitempty"`
}

// WireError is the body of a non-2xx boundary response.
type WireError struct {
	Error string `json:"error"`
}

// WireDescriptor is the serialized form of a Descriptor.
type WireDescriptor struct {
	IsFunction bool     `json:"isFunction,omitempty"`
	Name       string   `json:"name,omitempty"`
	IsArray    bool     `json:"isArray,omitempty"`
	Length     int      `json:"length"`
	IsObject   bool     `json:"isObject,omitempty"`
	Keys       []string `json:"keys,omitempty"`
}

// WireResult is the body of a successful boundary response. Exactly one of
// the following holds: Defined is false (undefined), Null is true (null),
// Descriptor is set (non-primitive shape), or Value carries a primitive.
type WireResult struct {
	Defined    bool            `json:"defined"`
	Null       bool            `json:"null,omitempty"`
	Value      any             `json:"value"`
	Descriptor *WireDescriptor `json:"descriptor,omitempty"`
}

// EncodeResult converts a resolver return value into its wire form.
func EncodeResult(v any) WireResult {
	if IsUndefined(v) {
		return WireResult{}
	}
	if v == nil {
		return WireResult{Defined: true, Null: true}
	}
	if d, ok := AsDescriptor(v); ok {
		return WireResult{Defined: true, Descriptor: encodeDescriptor(d)}
	}
	return WireResult{Defined: true, Value: v}
}

// Decode converts a wire result back into a resolver return value.
func (w WireResult) Decode() any {
	if !w.Defined {
		return Undefined
	}
	if w.Null {
		return nil
	}
	if w.Descriptor != nil {
		if d := w.Descriptor.decode(); d != nil {
			return d
		}
	}
	return w.Value
}

func encodeDescriptor(d *Descriptor) *WireDescriptor {
	switch d.Kind {
	case KindFunction:
		return &WireDescriptor{IsFunction: true, Name: d.Name}
	case KindArray:
		return &WireDescriptor{IsArray: true, Length: d.Length}
	case KindObject:
		return &WireDescriptor{IsObject: true, Keys: d.Keys}
	default:
		return nil
	}
}

// decode returns nil when no shape flag is set; callers fall back to
// treating the payload as a primitive, matching how untyped peers behave
// when a value merely happens to carry an isFunction field.
func (d *WireDescriptor) decode() *Descriptor {
	switch {
	case d.IsFunction:
		return FunctionOf(d.Name)
	case d.IsArray:
		return ArrayOf(d.Length)
	case d.IsObject:
		return ObjectOf(d.Keys...)
	default:
		return nil
	}
}

// MarshalResult serializes a resolver return value for the wire.
func MarshalResult(v any) ([]byte, error) {
	data, err := sonic.Marshal(EncodeResult(v))
	if err != nil {
		return nil, fmt.Errorf("marshal boundary result: %w", err)
	}
	return data, nil
}

// UnmarshalResult deserializes a wire body into a resolver return value.
func UnmarshalResult(data []byte) (any, error) {
	var w WireResult
	if err := sonic.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal boundary result: %w", err)
	}
	return w.Decode(), nil
}
