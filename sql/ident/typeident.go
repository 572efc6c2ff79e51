package ident

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is a type identifier: an Id plus ordered type modifiers
// (e.g. the 40 in varchar(40)) and ordered array bounds (one entry
// per "[]", −1 when the dimension's size was left unspecified).
type Type struct {
	Id        Id
	Modifiers []int
	Bounds    []int
}

// NewType builds a Type with no modifiers or array bounds.
func NewType(id Id) Type {
	return Type{Id: id}
}

// String renders the type the way PostgreSQL prints it back, e.g.
// "pg_catalog.varchar(40)[][]".
func (t Type) String() string {
	var b strings.Builder
	b.WriteString(t.Id.String())
	if len(t.Modifiers) > 0 {
		b.WriteByte('(')
		for i, m := range t.Modifiers {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(m))
		}
		b.WriteByte(')')
	}
	for _, n := range t.Bounds {
		if n < 0 {
			b.WriteString("[]")
		} else {
			fmt.Fprintf(&b, "[%d]", n)
		}
	}
	return b.String()
}

// Equal compares two type identifiers structurally, canonicalizing
// schema the same way Id.Equal does.
func (t Type) Equal(other Type) bool {
	if !t.Id.Equal(other.Id) {
		return false
	}
	if len(t.Modifiers) != len(other.Modifiers) || len(t.Bounds) != len(other.Bounds) {
		return false
	}
	for i := range t.Modifiers {
		if t.Modifiers[i] != other.Modifiers[i] {
			return false
		}
	}
	for i := range t.Bounds {
		if t.Bounds[i] != other.Bounds[i] {
			return false
		}
	}
	return true
}

// IsArray reports whether the type has any array dimension.
func (t Type) IsArray() bool { return len(t.Bounds) > 0 }

// ParseType parses a PostgreSQL-formatted type string such as
// "pg_catalog.varchar(40)[][]" or "integer[3]" into a Type.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	var bounds []int
	for {
		s = strings.TrimRight(s, " ")
		if !strings.HasSuffix(s, "]") {
			break
		}
		open := strings.LastIndexByte(s, '[')
		if open < 0 {
			return Type{}, fmt.Errorf("ident: unbalanced array bound in %q", s)
		}
		inner := strings.TrimSpace(s[open+1 : len(s)-1])
		n := -1
		if inner != "" {
			v, err := strconv.Atoi(inner)
			if err != nil {
				return Type{}, fmt.Errorf("ident: bad array bound %q: %w", inner, err)
			}
			n = v
		}
		bounds = append([]int{n}, bounds...)
		s = s[:open]
	}
	var mods []int
	if open := strings.IndexByte(s, '('); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return Type{}, fmt.Errorf("ident: unbalanced modifier list in %q", s)
		}
		for _, part := range strings.Split(s[open+1:len(s)-1], ",") {
			v, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return Type{}, fmt.Errorf("ident: bad type modifier %q: %w", part, err)
			}
			mods = append(mods, v)
		}
		s = s[:open]
	}
	id, err := Parse(strings.TrimSpace(s))
	if err != nil {
		return Type{}, err
	}
	return Type{Id: id, Modifiers: mods, Bounds: bounds}, nil
}
