// Package diff decides, for each desired statement, whether the live
// database needs a CREATE, an ALTER, a DROP-and-recreate, or nothing at
// all, per spec.md §4.G's decision table. Grounded in the teacher's
// sql/postgres/diff.go, whose (*diff).ColumnChange classifies a single
// column's before/after state into exactly one schema.ChangeKind
// (type/default/generated/nullability), and whose typeChanged/
// defaultChanged helpers compare normalized forms rather than raw
// text. This package keeps that "classify, then act" shape but
// compares introspected PgXxx rows against sqlparse.Statement payloads
// instead of two schema.Schema trees, since there is no third-party
// object model shared between the parser and the introspector here.
package diff

import (
	"fmt"
	"strings"

	"github.com/nanopg/nanopg/sql/ident"
	"github.com/nanopg/nanopg/sql/introspect"
	"github.com/nanopg/nanopg/sql/sqlparse"
	"github.com/nanopg/nanopg/sql/sqltmpl"
)

// Action classifies what a Change does.
type Action int

const (
	ActionCreate Action = iota
	ActionAlter
	ActionDropRecreate
	ActionNoop
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionAlter:
		return "alter"
	case ActionDropRecreate:
		return "drop-recreate"
	default:
		return "noop"
	}
}

// ColChangeKind classifies one column's before/after delta.
type ColChangeKind int

const (
	ColAdded ColChangeKind = iota
	ColDropped
	ColTypeChanged
	ColCollationChanged
)

// ColChange is one column-level delta within a table ALTER.
type ColChange struct {
	Kind      ColChangeKind
	Column    string
	OldType   ident.Type
	NewType   ident.Type
	OldCollat ident.Id
	NewCollat ident.Id
}

// Change is one planned action against a single statement's object.
type Change struct {
	Kind      sqlparse.Kind
	ID        ident.Id
	Action    Action
	Reason    string
	ColDeltas []ColChange // populated only for ActionAlter on a table
	SQL       []*sqltmpl.Template
}

// Plan compares the desired statement set against the introspected
// namespaces and returns one Change per statement, in the same order
// as stmts (callers apply in topological order, not plan order).
func Plan(stmts []*sqlparse.Statement, namespaces map[string]*introspect.Namespace) ([]Change, error) {
	changes := make([]Change, 0, len(stmts))
	for _, s := range stmts {
		c, err := planOne(s, namespaces)
		if err != nil {
			return nil, fmt.Errorf("diff: %s %s: %w", s.Kind, s.ID, err)
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func planOne(s *sqlparse.Statement, namespaces map[string]*introspect.Namespace) (Change, error) {
	ns := namespaces[s.ID.Schema]
	switch s.Kind {
	case sqlparse.KindExtension:
		// Extensions are never altered once present: no-op either way.
		if ns != nil {
			for n := range ns.Names {
				if n == s.ID.Name {
					return Change{Kind: s.Kind, ID: s.ID, Action: ActionNoop, Reason: "extension already installed"}, nil
				}
			}
		}
		return createChange(s), nil
	case sqlparse.KindCompositeType:
		existing := findComposite(ns, s.ID.Name)
		if existing == nil {
			return createChange(s), nil
		}
		if compositeSignatureEqual(existing, s.Composite) {
			return Change{Kind: s.Kind, ID: s.ID, Action: ActionNoop}, nil
		}
		return dropRecreate(s, "DROP TYPE", "column count, order, or names differ"), nil
	case sqlparse.KindEnumType:
		existing := findEnum(ns, s.ID.Name)
		if existing == nil {
			return createChange(s), nil
		}
		if enumSignatureEqual(existing, s.Enum) {
			return Change{Kind: s.Kind, ID: s.ID, Action: ActionNoop}, nil
		}
		return dropRecreate(s, "DROP TYPE", "enum labels differ"), nil
	case sqlparse.KindRoutine:
		existing := findRoutine(ns, s.ID.Name)
		if existing == nil {
			return createChange(s), nil
		}
		if routineSignatureEqual(existing, s.Routine) {
			return Change{Kind: s.Kind, ID: s.ID, Action: ActionNoop}, nil
		}
		return dropRecreate(s, "DROP ROUTINE", "argument/return signature differs"), nil
	case sqlparse.KindView:
		existing := findView(ns, s.ID.Name)
		if existing == nil {
			return createChange(s), nil
		}
		if normalizeSQL(existing.Definition) == normalizeSQL(s.View.Subquery) {
			return Change{Kind: s.Kind, ID: s.ID, Action: ActionNoop}, nil
		}
		return dropRecreate(s, "DROP VIEW", "view definition differs"), nil
	case sqlparse.KindTable:
		existing := findTable(ns, s.ID.Name)
		if existing == nil {
			return createChange(s), nil
		}
		deltas := diffColumns(existing, s.Table)
		pkStmts := primaryKeyChange(s, existing.PrimaryKey)
		if len(deltas) == 0 && len(pkStmts) == 0 {
			return Change{Kind: s.Kind, ID: s.ID, Action: ActionNoop}, nil
		}
		return alterTable(s, deltas, pkStmts), nil
	default:
		return Change{}, fmt.Errorf("unhandled statement kind %v", s.Kind)
	}
}

func createChange(s *sqlparse.Statement) Change {
	return Change{
		Kind:   s.Kind,
		ID:     s.ID,
		Action: ActionCreate,
		SQL:    []*sqltmpl.Template{sqltmpl.New(sqltmpl.Unsafe(s.RawText))},
	}
}

func dropRecreate(s *sqlparse.Statement, dropVerb, reason string) Change {
	drop := sqltmpl.New(sqltmpl.Unsafe(dropVerb+" "), sqltmpl.ID(s.ID.Schema, s.ID.Name), sqltmpl.Unsafe(" CASCADE"))
	create := sqltmpl.New(sqltmpl.Unsafe(s.RawText))
	return Change{
		Kind:   s.Kind,
		ID:     s.ID,
		Action: ActionDropRecreate,
		Reason: reason,
		SQL:    []*sqltmpl.Template{drop, create},
	}
}

func findComposite(ns *introspect.Namespace, name string) *introspect.PgComposite {
	if ns == nil {
		return nil
	}
	for i := range ns.CompositeTypes {
		if ns.CompositeTypes[i].Name == name {
			return &ns.CompositeTypes[i]
		}
	}
	return nil
}

func findEnum(ns *introspect.Namespace, name string) *introspect.PgEnum {
	if ns == nil {
		return nil
	}
	for i := range ns.EnumTypes {
		if ns.EnumTypes[i].Name == name {
			return &ns.EnumTypes[i]
		}
	}
	return nil
}

func findRoutine(ns *introspect.Namespace, name string) *introspect.PgRoutine {
	if ns == nil {
		return nil
	}
	for i := range ns.Routines {
		if ns.Routines[i].Name == name {
			return &ns.Routines[i]
		}
	}
	return nil
}

func findView(ns *introspect.Namespace, name string) *introspect.PgView {
	if ns == nil {
		return nil
	}
	for i := range ns.Views {
		if ns.Views[i].Name == name {
			return &ns.Views[i]
		}
	}
	return nil
}

func findTable(ns *introspect.Namespace, name string) *introspect.PgTable {
	if ns == nil {
		return nil
	}
	for i := range ns.Tables {
		if ns.Tables[i].Name == name {
			return &ns.Tables[i]
		}
	}
	return nil
}

// compositeSignatureEqual compares column count and the column names in
// order; column types are not compared.
func compositeSignatureEqual(existing *introspect.PgComposite, want *sqlparse.CompositePayload) bool {
	if len(existing.Fields) != len(want.Columns) {
		return false
	}
	for i, f := range existing.Fields {
		if f.Name != want.Columns[i].Name {
			return false
		}
	}
	return true
}

func enumSignatureEqual(existing *introspect.PgEnum, want *sqlparse.EnumPayload) bool {
	if len(existing.Labels) != len(want.Labels) {
		return false
	}
	for i, l := range existing.Labels {
		if l != want.Labels[i] {
			return false
		}
	}
	return true
}

func routineSignatureEqual(existing *introspect.PgRoutine, want *sqlparse.RoutinePayload) bool {
	wantArgs := len(want.InParams)
	if len(existing.ParamNames) != wantArgs {
		return false
	}
	for i, p := range want.InParams {
		if i < len(existing.ParamNames) && existing.ParamNames[i] != "" && existing.ParamNames[i] != p.Name {
			return false
		}
	}
	wantProcedure := want.IsProcedure
	existingProcedure := existing.Kind == "p"
	if wantProcedure != existingProcedure {
		return false
	}
	if want.ReturnSet != existing.ReturnSet {
		return false
	}
	return true
}

func normalizeSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ";")
	out := make([]byte, 0, len(s))
	prevSpace := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			if !prevSpace {
				out = append(out, ' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return strings.TrimSpace(string(out))
}
