// This file defines Caps, the immutable capability set describing a negotiated media format.
// A Caps value is either ANY, EMPTY, or an ordered list of structures.

package caps

import (
	"sort"
	"strings"
)

// Caps is an immutable capability set.
// The zero value is the EMPTY set, which is also how an unnegotiated format is represented.
type Caps struct {
	any        bool
	structures []Structure
}

// Structure is one media type with its constrained fields.
type Structure struct {
	name   string
	fields map[string]Value
}

// Any returns the capability set that intersects every non-empty set.
func Any() Caps {
	return Caps{any: true}
}

// Empty returns the capability set that intersects nothing.
func Empty() Caps {
	return Caps{}
}

// New builds a capability set from structures. No structures yields EMPTY.
func New(structures ...Structure) Caps {
	if len(structures) == 0 {
		return Caps{}
	}
	cp := make([]Structure, len(structures))
	copy(cp, structures)
	return Caps{structures: cp}
}

// NewStructure builds a structure for the given media type.
// Fields may be nil.
func NewStructure(name string, fields map[string]Value) Structure {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Structure{name: name, fields: cp}
}

// IsAny reports whether c is the ANY set.
func (c Caps) IsAny() bool {
	return c.any
}

// IsEmpty reports whether c contains no structure and is not ANY.
func (c Caps) IsEmpty() bool {
	return !c.any && len(c.structures) == 0
}

// Len returns the number of structures.
func (c Caps) Len() int {
	return len(c.structures)
}

// Structure returns the structure at index i.
func (c Caps) Structure(i int) Structure {
	return c.structures[i]
}

// MediaType returns the name of the first structure, or "" for ANY and EMPTY.
func (c Caps) MediaType() string {
	if len(c.structures) == 0 {
		return ""
	}
	return c.structures[0].name
}

// CanIntersect reports whether c and o share at least one format.
func (c Caps) CanIntersect(o Caps) bool {
	if c.IsEmpty() || o.IsEmpty() {
		return false
	}
	if c.any || o.any {
		return true
	}
	for _, a := range c.structures {
		for _, b := range o.structures {
			if _, ok := a.intersect(b); ok {
				return true
			}
		}
	}
	return false
}

// Intersect returns the formats shared by c and o, in c's order.
func (c Caps) Intersect(o Caps) Caps {
	switch {
	case c.IsEmpty() || o.IsEmpty():
		return Caps{}
	case c.any:
		return o
	case o.any:
		return c
	}
	var out []Structure
	for _, a := range c.structures {
		for _, b := range o.structures {
			if s, ok := a.intersect(b); ok {
				out = append(out, s)
			}
		}
	}
	return Caps{structures: out}
}

// Equal reports whether both sets print identically.
func (c Caps) Equal(o Caps) bool {
	return c.String() == o.String()
}

// String renders c in the same notation Parse accepts.
func (c Caps) String() string {
	if c.any {
		return "ANY"
	}
	if len(c.structures) == 0 {
		return "EMPTY"
	}
	parts := make([]string, len(c.structures))
	for i, s := range c.structures {
		parts[i] = s.String()
	}
	return strings.Join(parts, "; ")
}

// Name returns the media type of the structure.
func (s Structure) Name() string {
	return s.name
}

// Field returns the value constraint for a field.
func (s Structure) Field(name string) (Value, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// String renders the structure with fields sorted by name.
func (s Structure) String() string {
	if len(s.fields) == 0 {
		return s.name
	}
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(s.name)
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(s.fields[k].String())
	}
	return b.String()
}

// intersect merges two structures. Fields constrained on one side only are kept as-is.
func (s Structure) intersect(o Structure) (Structure, bool) {
	if s.name != o.name {
		return Structure{}, false
	}
	fields := make(map[string]Value, len(s.fields)+len(o.fields))
	for k, v := range s.fields {
		fields[k] = v
	}
	for k, ov := range o.fields {
		sv, ok := fields[k]
		if !ok {
			fields[k] = ov
			continue
		}
		merged, ok := sv.intersect(ov)
		if !ok {
			return Structure{}, false
		}
		fields[k] = merged
	}
	return Structure{name: s.name, fields: fields}, true
}
