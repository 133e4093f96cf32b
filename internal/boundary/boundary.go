package boundary

import "strings"

// Path addresses a location in the host data graph as an ordered list of
// segments, e.g. ["$json", "user", "name"]. Paths are value types: Child
// copies, so two proxies never share backing storage.
type Path []string

// NewPath builds a path from segments.
func NewPath(segments ...string) Path {
	p := make(Path, len(segments))
	copy(p, segments)
	return p
}

// Child returns a new path with segment appended. The receiver is unchanged.
func (p Path) Child(segment string) Path {
	child := make(Path, len(p)+1)
	copy(child, p)
	child[len(p)] = segment
	return child
}

// Root returns the first segment, or "" for an empty path.
func (p Path) Root() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Leaf returns the last segment, or "" for an empty path.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// undefined is the host-side representation of a value that does not exist.
// It is distinct from nil, which represents an explicit null.
type undefined struct{}

// Undefined marks an absent value. Resolvers return it for paths whose final
// segment is missing; proxies translate it to the sandbox's undefined.
var Undefined any = undefined{}

// IsUndefined reports whether v is the absent-value marker.
func IsUndefined(v any) bool {
	_, ok := v.(undefined)
	return ok
}

// Kind discriminates the non-primitive shapes a resolver can report.
type Kind uint8

const (
	KindFunction Kind = iota + 1
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Descriptor is the metadata a resolver returns in place of a non-primitive
// value. The receiving side builds the matching lazy stand-in (function
// wrapper, array proxy, or object proxy) instead of transferring data.
type Descriptor struct {
	Kind Kind
	// Name is the advertised function name (KindFunction only).
	Name string
	// Length is the element count (KindArray only).
	Length int
	// Keys lists the known own keys (KindObject only, may be empty).
	Keys []string
}

// FunctionOf describes an invokable value with the given name.
func FunctionOf(name string) *Descriptor {
	return &Descriptor{Kind: KindFunction, Name: name}
}

// ArrayOf describes an array with the given element count.
func ArrayOf(length int) *Descriptor {
	return &Descriptor{Kind: KindArray, Length: length}
}

// ObjectOf describes an object advertising the given own keys.
func ObjectOf(keys ...string) *Descriptor {
	return &Descriptor{Kind: KindObject, Keys: keys}
}

// AsDescriptor reports whether a resolved value is shape metadata rather
// than a transferable primitive.
func AsDescriptor(v any) (*Descriptor, bool) {
	d, ok := v.(*Descriptor)
	return d, ok && d != nil
}
