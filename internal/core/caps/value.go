// This file defines Value, the constraint attached to a caps field.
// A value is either a list of alternatives or an inclusive integer range.

package caps

import (
	"strconv"
	"strings"
)

// Value constrains one structure field.
type Value struct {
	list     []string
	isRange  bool
	min, max int64
}

// Scalar returns a single-alternative value.
func Scalar(v string) Value {
	return Value{list: []string{v}}
}

// List returns a value accepting any of the alternatives.
func List(vs ...string) Value {
	cp := make([]string, len(vs))
	copy(cp, vs)
	return Value{list: cp}
}

// Range returns an inclusive integer range.
func Range(min, max int64) Value {
	return Value{isRange: true, min: min, max: max}
}

// IsRange reports whether v is an integer range.
func (v Value) IsRange() bool {
	return v.isRange
}

// Values returns the alternatives of a list value.
func (v Value) Values() []string {
	return v.list
}

// String renders the value: scalar, { a, b } or [ min, max ].
func (v Value) String() string {
	if v.isRange {
		return "[ " + strconv.FormatInt(v.min, 10) + ", " + strconv.FormatInt(v.max, 10) + " ]"
	}
	if len(v.list) == 1 {
		return v.list[0]
	}
	return "{ " + strings.Join(v.list, ", ") + " }"
}

func (v Value) intersect(o Value) (Value, bool) {
	switch {
	case v.isRange && o.isRange:
		lo, hi := max(v.min, o.min), min(v.max, o.max)
		if lo > hi {
			return Value{}, false
		}
		if lo == hi {
			return Scalar(strconv.FormatInt(lo, 10)), true
		}
		return Range(lo, hi), true
	case v.isRange:
		return o.clampTo(v)
	case o.isRange:
		return v.clampTo(o)
	}

	var out []string
	for _, a := range v.list {
		for _, b := range o.list {
			if a == b {
				out = append(out, a)
				break
			}
		}
	}
	if len(out) == 0 {
		return Value{}, false
	}
	return Value{list: out}, true
}

// clampTo keeps the integer alternatives of v that fall inside r.
func (v Value) clampTo(r Value) (Value, bool) {
	var out []string
	for _, s := range v.list {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			continue
		}
		if n >= r.min && n <= r.max {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return Value{}, false
	}
	return Value{list: out}, true
}
