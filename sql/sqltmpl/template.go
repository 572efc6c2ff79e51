// Package sqltmpl provides the SQL template builder used by every other
// engine component to assemble DDL and catalog queries: a sequence of
// literal text segments interleaved with typed values (identifiers,
// literals, joins, nested templates) that is rendered once, either into
// a parameterized query or into an inline-quoted one, with indentation
// preserved across nested templates. It generalizes the syntactic-sugar
// Builder the teacher repo hand-rolls per statement (ariga.io/atlas's
// sql/internal/sqlx.Builder) into the reusable value-typed template the
// spec calls for.
package sqltmpl

import (
	"fmt"
	"strings"
)

// Kind discriminates the variants a Value can hold.
type Kind int

const (
	KindID Kind = iota
	KindLiteral
	KindJoin
	KindUnsafe
	KindTemplate
	KindSeq
)

// Value is a single interpolated position in a Template. Exactly one of
// the payload fields is meaningful, selected by Kind — a tagged union
// rather than an interface, so every render path can switch over it
// exhaustively.
type Value struct {
	Kind Kind

	// KindID
	IDParts []string

	// KindLiteral
	LiteralVal    any
	LiteralInline bool

	// KindJoin
	JoinSep   *Value // nil means JoinSepLit is the separator
	JoinSepLit string // used when JoinSep is nil and sep is a plain string
	JoinItems []Value

	// KindUnsafe
	UnsafeText string

	// KindTemplate
	Tmpl *Template

	// KindSeq
	SeqItems []Value
}

// ID builds an Id token from one or more dotted name parts, e.g.
// ID("public", "users") or ID("users").
func ID(parts ...string) Value { return Value{Kind: KindID, IDParts: parts} }

// Val builds an inline literal token: it renders as a quoted literal
// escaped by the wire layer, never as a parameter placeholder.
func Val(v any) Value { return Value{Kind: KindLiteral, LiteralVal: v, LiteralInline: true} }

// Param builds a parameterized literal token: it allocates a positional
// "$N" placeholder and appends v to the template's parameter list.
func Param(v any) Value { return Value{Kind: KindLiteral, LiteralVal: v, LiteralInline: false} }

// Unsafe builds a verbatim-text token. Use only for keyword splicing —
// Unsafe text is never escaped.
func Unsafe(text string) Value { return Value{Kind: KindUnsafe, UnsafeText: text} }

// Expr wraps a nested Template as a Value.
func Expr(t *Template) Value { return Value{Kind: KindTemplate, Tmpl: t} }

// Join builds a Join token: items separated by sep, which must be either
// a plain string (e.g. ",", ", ", "\n" or "") or another Value. An empty
// items list renders as the empty string.
func Join(sep any, items []Value) Value {
	v := Value{Kind: KindJoin, JoinItems: items}
	switch s := sep.(type) {
	case Value:
		v.JoinSep = &s
	case string:
		v.JoinSepLit = s
	default:
		panic(fmt.Sprintf("sqltmpl: invalid separator type %T", sep))
	}
	return v
}

// Seq builds a nullable sequence of values that concatenate with no
// separator.
func Seq(items ...Value) Value { return Value{Kind: KindSeq, SeqItems: items} }

// List renders vs as a parenthesized, comma-joined expression, with
// mapper transforming each item into a Value. mapper is called for
// every item and must be non-nil.
func List[T any](vs []T, mapper func(T) Value) Value {
	items := make([]Value, len(vs))
	for i, v := range vs {
		items[i] = mapper(v)
	}
	return Seq(Unsafe("("), Join(",", items), Unsafe(")"))
}

// Template is a pair of literal text segments and interpolated values,
// with len(Segments) == len(Values)+1. Build one with a Builder.
type Template struct {
	Segments []string
	Values   []Value
}

// Builder assembles a Template by interleaving literal SQL text with
// Values, mirroring the teacher's own Builder (sql/internal/sqlx.Builder)
// but recording structure instead of writing bytes directly.
type Builder struct {
	segs []string
	vals []Value
	cur  strings.Builder
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// S appends literal SQL text.
func (b *Builder) S(text string) *Builder {
	b.cur.WriteString(text)
	return b
}

// V appends a Value, closing off the current literal segment.
func (b *Builder) V(v Value) *Builder {
	b.segs = append(b.segs, b.cur.String())
	b.cur.Reset()
	b.vals = append(b.vals, v)
	return b
}

// Build finalizes the Template.
func (b *Builder) Build() *Template {
	return &Template{
		Segments: append(b.segs, b.cur.String()),
		Values:   b.vals,
	}
}

// New is a convenience constructor for a Template built from literal
// text and values in a single call, e.g.
//
//	New("CREATE TABLE ", ID("public", "t"), " (", body, ")")
func New(parts ...any) *Template {
	b := NewBuilder()
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			b.S(v)
		case Value:
			b.V(v)
		case *Template:
			b.V(Expr(v))
		default:
			panic(fmt.Sprintf("sqltmpl: invalid template part %T", p))
		}
	}
	return b.Build()
}
