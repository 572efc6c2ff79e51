// Package ident implements the schema-qualified identifier model used
// throughout nanopg: plain object identifiers (schema, name) and the
// type identifiers (with modifiers and array bounds) that describe a
// column, parameter, or return type.
package ident

import (
	"fmt"
	"regexp"
	"strings"
)

// Public is the default schema used when none is given, matching
// PostgreSQL's own default search_path behavior.
const Public = "public"

// Id is a schema-qualified object name, e.g. a table, routine, or type.
// The zero value is not valid; use New or Parse to construct one.
type Id struct {
	Schema string
	Name   string
}

// New builds an Id, defaulting an empty schema to Public.
func New(schema, name string) Id {
	if schema == "" {
		schema = Public
	}
	return Id{Schema: schema, Name: name}
}

// Parse splits a dotted-qualified name ("schema.name" or "name") into an Id.
// Both sides may be double-quoted; quotes are stripped and doubled
// internal quotes are unescaped.
func Parse(s string) (Id, error) {
	parts, err := splitDotted(s)
	if err != nil {
		return Id{}, err
	}
	switch len(parts) {
	case 1:
		return New("", parts[0]), nil
	case 2:
		return New(parts[0], parts[1]), nil
	default:
		return Id{}, fmt.Errorf("ident: too many dotted parts in %q", s)
	}
}

// splitDotted splits on top-level dots, honoring double-quoted segments.
func splitDotted(s string) ([]string, error) {
	var (
		parts   []string
		cur     strings.Builder
		inQuote bool
	)
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuote && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteByte('"')
				i++
				continue
			}
			inQuote = !inQuote
		case r == '.' && !inQuote:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("ident: unterminated quote in %q", s)
	}
	parts = append(parts, cur.String())
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("ident: empty part in %q", s)
		}
	}
	return parts, nil
}

// canonSchema returns the schema used for equality comparisons: an
// empty schema canonicalizes to Public, per the Invariant in the spec.
func (id Id) canonSchema() string {
	if id.Schema == "" {
		return Public
	}
	return id.Schema
}

// Equal reports whether id and other name the same object, treating a
// missing schema as Public on both sides.
func (id Id) Equal(other Id) bool {
	return id.canonSchema() == other.canonSchema() && id.Name == other.Name
}

// safeIdent matches identifiers that need no quoting: lowercase letters,
// digits and underscores, not starting with a digit.
var safeIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// QuotePart renders a single identifier part, double-quoting it (and
// doubling any embedded quotes) unless every character is in the safe set.
func QuotePart(s string) string {
	if safeIdent.MatchString(s) {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// String renders the fully schema-qualified, safely quoted name.
func (id Id) String() string {
	return QuotePart(id.canonSchema()) + "." + QuotePart(id.Name)
}

// Unqualified renders only the object name, safely quoted.
func (id Id) Unqualified() string {
	return QuotePart(id.Name)
}

// Literal renders s as a single-quoted SQL string literal, doubling
// any embedded single quotes. Used for comparisons against catalog
// text columns (e.g. extension names) rather than identifier positions.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// SchemaLiteral and NameLiteral expose the escaped-literal form of each
// side of the identifier, used when comparing against pg_catalog text
// columns instead of splicing identifiers into DDL.
func (id Id) SchemaLiteral() string { return Literal(id.canonSchema()) }
func (id Id) NameLiteral() string   { return Literal(id.Name) }

// ToRegex builds a regular expression that matches both the quoted and
// unquoted occurrences of id in source text, with the schema portion
// optional (since SQL may reference the bare name relying on search_path).
func (id Id) ToRegex() *regexp.Regexp {
	schema := id.canonSchema()
	alt := func(s string) string {
		return fmt.Sprintf(`(?:%s|"%s")`, regexp.QuoteMeta(s), regexp.QuoteMeta(s))
	}
	pattern := fmt.Sprintf(`(?:%s\s*\.\s*)?%s`, alt(schema), alt(id.Name))
	return regexp.MustCompile(pattern)
}
