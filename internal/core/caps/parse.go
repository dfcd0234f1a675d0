// This file parses the textual caps notation: "media/type,field=value; other/type".
// Type casts such as (int) or (string) are accepted and dropped.

package caps

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is returned for malformed caps strings.
var ErrSyntax = errors.New("caps syntax error")

// Parse reads a capability set.
// "ANY" yields Any(); "", "EMPTY" and "NONE" yield Empty().
func Parse(s string) (Caps, error) {
	s = strings.TrimSpace(s)
	switch strings.ToUpper(s) {
	case "ANY":
		return Any(), nil
	case "", "EMPTY", "NONE":
		return Empty(), nil
	}

	var structures []Structure
	for _, part := range splitTop(s, ';') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		st, err := parseStructure(part)
		if err != nil {
			return Caps{}, err
		}
		structures = append(structures, st)
	}
	return New(structures...), nil
}

// MustParse is Parse for compile-time constants. It panics on error.
func MustParse(s string) Caps {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

func parseStructure(s string) (Structure, error) {
	parts := splitTop(s, ',')
	name := strings.TrimSpace(parts[0])
	if name == "" || strings.ContainsAny(name, "=[]{} ") {
		return Structure{}, fmt.Errorf("%w: bad media type %q", ErrSyntax, name)
	}

	fields := make(map[string]Value, len(parts)-1)
	for _, f := range parts[1:] {
		key, raw, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return Structure{}, fmt.Errorf("%w: bad field %q in %q", ErrSyntax, f, name)
		}
		v, err := parseValue(raw)
		if err != nil {
			return Structure{}, fmt.Errorf("field %s of %s: %w", key, name, err)
		}
		fields[key] = v
	}
	return Structure{name: name, fields: fields}, nil
}

func parseValue(raw string) (Value, error) {
	raw = stripCast(strings.TrimSpace(raw))
	switch {
	case raw == "":
		return Value{}, fmt.Errorf("%w: empty value", ErrSyntax)
	case strings.HasPrefix(raw, "{"):
		if !strings.HasSuffix(raw, "}") {
			return Value{}, fmt.Errorf("%w: unterminated list %q", ErrSyntax, raw)
		}
		var items []string
		for _, it := range strings.Split(raw[1:len(raw)-1], ",") {
			it = stripCast(strings.TrimSpace(it))
			if it != "" {
				items = append(items, it)
			}
		}
		if len(items) == 0 {
			return Value{}, fmt.Errorf("%w: empty list", ErrSyntax)
		}
		return List(items...), nil
	case strings.HasPrefix(raw, "["):
		if !strings.HasSuffix(raw, "]") {
			return Value{}, fmt.Errorf("%w: unterminated range %q", ErrSyntax, raw)
		}
		lo, hi, ok := strings.Cut(raw[1:len(raw)-1], ",")
		if !ok {
			return Value{}, fmt.Errorf("%w: range needs two bounds %q", ErrSyntax, raw)
		}
		min, err1 := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		max, err2 := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err1 != nil || err2 != nil || min > max {
			return Value{}, fmt.Errorf("%w: bad range %q", ErrSyntax, raw)
		}
		return Range(min, max), nil
	}
	return Scalar(strings.Trim(raw, `"`)), nil
}

// stripCast drops a leading "(type)" annotation.
func stripCast(s string) string {
	if strings.HasPrefix(s, "(") {
		if i := strings.IndexByte(s, ')'); i > 0 {
			return strings.TrimSpace(s[i+1:])
		}
	}
	return s
}

// splitTop splits on sep outside of {} and [] groups.
func splitTop(s string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}
