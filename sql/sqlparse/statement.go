// Package sqlparse splits a schema file into individual statements and
// classifies each into the engine's tagged-union Statement shape, using
// github.com/pganalyze/pg_query_go/v5 (a cgo binding of libpg_query, the
// real Postgres grammar) as the external parser. Grounded in the
// teacher's own cmd/atlas/internal/sqlparse/pgparse package, which
// drives the same library the same way: pgquery.Parse, then a type
// switch over tr.Stmts[i].Stmt.Node.
package sqlparse

import (
	"github.com/nanopg/nanopg/sql/ident"
)

// Kind discriminates the Statement tagged union.
type Kind int

const (
	KindTable Kind = iota
	KindRoutine
	KindCompositeType
	KindEnumType
	KindView
	KindExtension
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindRoutine:
		return "routine"
	case KindCompositeType:
		return "type.composite"
	case KindEnumType:
		return "type.enum"
	case KindView:
		return "view"
	case KindExtension:
		return "extension"
	default:
		return "unknown"
	}
}

// Identity kinds for table columns, per spec.md §3.
const (
	IdentityNone    = "none"
	IdentityAlways  = "always"
	IdentityDefault = "default"
)

// ParamMode classifies a routine parameter, per spec.md §4.D.
type ParamMode int

const (
	ParamIn ParamMode = iota
	ParamOut
	ParamInOut
	ParamVariadic
)

// Column is a table or composite-type column definition.
type Column struct {
	Name         string
	Type         ident.Type
	Nullable     bool
	HasDefault   bool
	Identity     string
	IsPrimaryKey bool
	Refs         []ident.Id
	Collation    *ident.Id
}

// Param is a routine parameter.
type Param struct {
	Name     string
	Type     ident.Type
	Mode     ParamMode
	Variadic bool
}

// OutColumn is one column of a TABLE(...) return clause.
type OutColumn struct {
	Name string
	Type ident.Type
}

// Statement is the tagged union described in spec.md §3: every parsed
// top-level DDL node, regardless of kind, carries this common envelope
// plus one populated Kind-specific payload.
type Statement struct {
	Kind       Kind
	ID         ident.Id
	RawText    string
	SourceFile string
	SourceLine int

	// DepsOut/DepsIn are populated by sql/depgraph, not by the parser.
	DepsOut []ident.Id
	DepsIn  []ident.Id

	Table     *TablePayload
	Routine   *RoutinePayload
	Composite *CompositePayload
	Enum      *EnumPayload
	View      *ViewPayload
	// Extension has no extra fields.
}

// TablePayload is the KindTable variant.
type TablePayload struct {
	Columns       []Column
	PrimaryKey    []string
}

// RoutinePayload is the KindRoutine variant.
type RoutinePayload struct {
	InParams  []Param
	OutParams []OutColumn // nil unless returnType is outColumns

	// ReturnType is set exactly when OutParams is nil and IsProcedure is
	// false; a nil ReturnType with nil OutParams means the routine is a
	// procedure or returns void/trigger.
	ReturnType *ident.Type

	ReturnSet   bool
	IsProcedure bool
}

// CompositePayload is the KindCompositeType variant.
type CompositePayload struct {
	Columns []Column
}

// EnumPayload is the KindEnumType variant.
type EnumPayload struct {
	Labels []string
}

// ViewPayload is the KindView variant.
type ViewPayload struct {
	Refs []ident.Id
	// Subquery is the raw text of the view's defining query, with the
	// "CREATE VIEW ... AS" prefix and any "WITH [CASCADED|LOCAL] CHECK
	// OPTION" suffix stripped.
	Subquery string

	// Fields is populated lazily by the introspector once the view has
	// been created in the database; nil until then.
	Fields []FieldShape
}

// FieldShape mirrors the introspector's PgField shape, cached on a view
// statement once inferred.
type FieldShape struct {
	Name     string
	TypeOID  uint32
	Nullable bool
	NDims    int
}
