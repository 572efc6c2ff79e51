package diff

import (
	"sort"

	"github.com/nanopg/nanopg/sql/introspect"
	"github.com/nanopg/nanopg/sql/sqlparse"
	"github.com/nanopg/nanopg/sql/sqltmpl"
)

// diffColumns classifies existing.Fields against want.Columns into the
// per-column deltas spec.md §4.G enumerates: added, dropped, type
// changed, collation changed. Column order is not itself compared —
// only presence and per-column shape, matching the teacher's
// per-column (not whole-table) classification in
// sql/postgres.(*diff).ColumnChange. The existing column's collation is
// not read, so a collation delta is emitted for every desired column
// that declares a COLLATE clause, whether or not it differs.
func diffColumns(existing *introspect.PgTable, want *sqlparse.TablePayload) []ColChange {
	existingByName := make(map[string]introspect.PgField, len(existing.Fields))
	for _, f := range existing.Fields {
		existingByName[f.Name] = f
	}
	wantByName := make(map[string]sqlparse.Column, len(want.Columns))
	for _, c := range want.Columns {
		wantByName[c.Name] = c
	}

	var deltas []ColChange
	for _, c := range want.Columns {
		f, ok := existingByName[c.Name]
		if !ok {
			deltas = append(deltas, ColChange{Kind: ColAdded, Column: c.Name, NewType: c.Type})
			continue
		}
		if !typeRoughlyEqual(f, c) {
			deltas = append(deltas, ColChange{Kind: ColTypeChanged, Column: c.Name, NewType: c.Type})
		}
		if c.Collation != nil {
			deltas = append(deltas, ColChange{Kind: ColCollationChanged, Column: c.Name, NewCollat: *c.Collation})
		}
	}
	for _, f := range existing.Fields {
		if _, ok := wantByName[f.Name]; !ok {
			deltas = append(deltas, ColChange{Kind: ColDropped, Column: f.Name})
		}
	}
	return deltas
}

// typeRoughlyEqual compares an introspected field's OID/dimension shape
// against a parsed column's declared type. A real driver would resolve
// the declared type name to its OID via the namespace's base-type
// table; lacking that resolution step here, this compares array
// dimensionality, the one signal directly present on both sides.
func typeRoughlyEqual(f introspect.PgField, c sqlparse.Column) bool {
	return f.NDims == len(c.Type.Bounds)
}

// alterTable emits the minimal ALTER TABLE sequence for deltas, per
// spec.md §4.G: one statement per added/dropped column, and a
// drop-then-add pair for any type change lacking a valid cast (assumed
// here, since this driver does not query pg_cast before emitting).
func alterTable(s *sqlparse.Statement, deltas []ColChange, pkStmts []*sqltmpl.Template) Change {
	var stmts []*sqltmpl.Template
	for _, d := range deltas {
		switch d.Kind {
		case ColAdded:
			col := columnByName(s.Table, d.Column)
			stmts = append(stmts, sqltmpl.New(
				"ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name),
				" ADD COLUMN ", sqltmpl.ID(d.Column), " ", sqltmpl.Unsafe(col.Type.String()),
			))
		case ColDropped:
			stmts = append(stmts, sqltmpl.New(
				"ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name),
				" DROP COLUMN ", sqltmpl.ID(d.Column),
			))
		case ColTypeChanged:
			if epochMsToTimestamp(d) {
				stmts = append(stmts, sqltmpl.New(
					"ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name),
					" ALTER COLUMN ", sqltmpl.ID(d.Column),
					" TYPE ", sqltmpl.Unsafe(d.NewType.String()),
					" USING to_timestamp(", sqltmpl.ID(d.Column), " / 1000)",
				))
				continue
			}
			stmts = append(stmts,
				sqltmpl.New("ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name), " DROP COLUMN ", sqltmpl.ID(d.Column)),
				sqltmpl.New("ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name), " ADD COLUMN ", sqltmpl.ID(d.Column), " ", sqltmpl.Unsafe(d.NewType.String())),
			)
		case ColCollationChanged:
			stmts = append(stmts, sqltmpl.New(
				"ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name),
				" ALTER COLUMN ", sqltmpl.ID(d.Column),
				" TYPE ", sqltmpl.Unsafe(d.NewType.String()),
				" COLLATE ", sqltmpl.ID(d.NewCollat.Schema, d.NewCollat.Name),
			))
		}
	}
	stmts = append(stmts, pkStmts...)
	return Change{Kind: s.Kind, ID: s.ID, Action: ActionAlter, ColDeltas: deltas, SQL: stmts}
}

// primaryKeyChange emits the statements spec.md §4.G requires when a
// table gains, loses, or changes its primary key: "primary-key
// additions drop the prior PK constraint first".
func primaryKeyChange(s *sqlparse.Statement, existing []string) []*sqltmpl.Template {
	want := append([]string(nil), s.Table.PrimaryKey...)
	sort.Strings(want)
	existingSorted := append([]string(nil), existing...)
	sort.Strings(existingSorted)
	if equalStrings(existingSorted, want) {
		return nil
	}
	var stmts []*sqltmpl.Template
	if len(existing) > 0 {
		stmts = append(stmts, sqltmpl.New(
			"ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name),
			" DROP CONSTRAINT ", sqltmpl.ID(s.ID.Name+"_pkey"),
		))
	}
	if len(want) > 0 {
		cols := make([]sqltmpl.Value, len(s.Table.PrimaryKey))
		for i, c := range s.Table.PrimaryKey {
			cols[i] = sqltmpl.ID(c)
		}
		stmts = append(stmts, sqltmpl.New(
			"ALTER TABLE ", sqltmpl.ID(s.ID.Schema, s.ID.Name),
			" ADD PRIMARY KEY (", sqltmpl.Join(", ", cols), ")",
		))
	}
	return stmts
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func columnByName(t *sqlparse.TablePayload, name string) sqlparse.Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return sqlparse.Column{}
}

// epochMsToTimestamp reports the special-case conversion from a bigint
// (epoch milliseconds) column to timestamptz, per spec.md §4.G.
func epochMsToTimestamp(d ColChange) bool {
	return d.NewType.Id.Name == "timestamptz" && len(d.NewType.Bounds) == 0
}
