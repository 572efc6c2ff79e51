package diff

import (
	"testing"

	"github.com/nanopg/nanopg/sql/ident"
	"github.com/nanopg/nanopg/sql/introspect"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

func tableStmt(schema, name string, cols ...sqlparse.Column) *sqlparse.Statement {
	return &sqlparse.Statement{
		Kind:    sqlparse.KindTable,
		ID:      ident.New(schema, name),
		RawText: "CREATE TABLE " + schema + "." + name + " (...)",
		Table:   &sqlparse.TablePayload{Columns: cols},
	}
}

func TestPlanCreatesMissingTable(t *testing.T) {
	s := tableStmt("public", "users", sqlparse.Column{Name: "id"})
	changes, err := Plan([]*sqlparse.Statement{s}, map[string]*introspect.Namespace{})
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionCreate {
		t.Fatalf("got %v, want create", changes[0].Action)
	}
}

func TestPlanNoopsUnchangedTable(t *testing.T) {
	s := tableStmt("public", "users", sqlparse.Column{Name: "id", Type: ident.NewType(ident.New("pg_catalog", "int8"))})
	ns := map[string]*introspect.Namespace{
		"public": {
			Tables: []introspect.PgTable{{
				PgComposite: introspect.PgComposite{Name: "users", Schema: "public", Fields: []introspect.PgField{{Name: "id"}}},
			}},
		},
	}
	changes, err := Plan([]*sqlparse.Statement{s}, ns)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionNoop {
		t.Fatalf("got %v, want noop", changes[0].Action)
	}
}

func TestPlanAltersTableOnAddedColumn(t *testing.T) {
	s := tableStmt("public", "users", sqlparse.Column{Name: "id"}, sqlparse.Column{Name: "email", Type: ident.NewType(ident.New("pg_catalog", "text"))})
	ns := map[string]*introspect.Namespace{
		"public": {
			Tables: []introspect.PgTable{{
				PgComposite: introspect.PgComposite{Name: "users", Schema: "public", Fields: []introspect.PgField{{Name: "id"}}},
			}},
		},
	}
	changes, err := Plan([]*sqlparse.Statement{s}, ns)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionAlter {
		t.Fatalf("got %v, want alter", changes[0].Action)
	}
	if len(changes[0].ColDeltas) != 1 || changes[0].ColDeltas[0].Kind != ColAdded {
		t.Fatalf("unexpected deltas: %#v", changes[0].ColDeltas)
	}
}

func TestPlanAddsPrimaryKeyAndDropsPriorConstraint(t *testing.T) {
	s := &sqlparse.Statement{
		Kind:    sqlparse.KindTable,
		ID:      ident.New("public", "users"),
		RawText: "CREATE TABLE public.users (...)",
		Table: &sqlparse.TablePayload{
			Columns:    []sqlparse.Column{{Name: "id"}},
			PrimaryKey: []string{"id"},
		},
	}
	ns := map[string]*introspect.Namespace{
		"public": {
			Tables: []introspect.PgTable{{
				PgComposite: introspect.PgComposite{Name: "users", Schema: "public", Fields: []introspect.PgField{{Name: "id"}}},
				PrimaryKey:  []string{"legacy_id"},
			}},
		},
	}
	changes, err := Plan([]*sqlparse.Statement{s}, ns)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionAlter {
		t.Fatalf("got %v, want alter", changes[0].Action)
	}
	if len(changes[0].SQL) != 2 {
		t.Fatalf("expected drop-constraint + add-primary-key pair, got %d statements", len(changes[0].SQL))
	}
}

func TestPlanDropsAndRecreatesChangedEnum(t *testing.T) {
	s := &sqlparse.Statement{
		Kind:    sqlparse.KindEnumType,
		ID:      ident.New("public", "mood"),
		RawText: "CREATE TYPE public.mood AS ENUM ('sad','happy')",
		Enum:    &sqlparse.EnumPayload{Labels: []string{"sad", "happy"}},
	}
	ns := map[string]*introspect.Namespace{
		"public": {EnumTypes: []introspect.PgEnum{{Name: "mood", Labels: []string{"sad", "ok", "happy"}}}},
	}
	changes, err := Plan([]*sqlparse.Statement{s}, ns)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionDropRecreate {
		t.Fatalf("got %v, want drop-recreate", changes[0].Action)
	}
	if len(changes[0].SQL) != 2 {
		t.Fatalf("expected drop+create pair, got %d statements", len(changes[0].SQL))
	}
}

func TestPlanNoopsUnchangedView(t *testing.T) {
	s := &sqlparse.Statement{
		Kind:    sqlparse.KindView,
		ID:      ident.New("public", "active_users"),
		RawText: "CREATE VIEW public.active_users AS select id, email from public.users where active;",
		View: &sqlparse.ViewPayload{
			Refs:     []ident.Id{ident.New("public", "users")},
			Subquery: "select id, email from public.users where active",
		},
	}
	ns := map[string]*introspect.Namespace{
		"public": {
			Views: []introspect.PgView{{
				Name:       "active_users",
				Schema:     "public",
				Definition: "SELECT id,\n    email\n   FROM public.users\n  WHERE active;",
			}},
		},
	}
	changes, err := Plan([]*sqlparse.Statement{s}, ns)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionNoop {
		t.Fatalf("got %v, want noop", changes[0].Action)
	}
}

func TestPlanDropsAndRecreatesChangedView(t *testing.T) {
	s := &sqlparse.Statement{
		Kind:    sqlparse.KindView,
		ID:      ident.New("public", "active_users"),
		RawText: "CREATE VIEW public.active_users AS select id, email from public.users where active;",
		View: &sqlparse.ViewPayload{
			Refs:     []ident.Id{ident.New("public", "users")},
			Subquery: "select id, email from public.users where active",
		},
	}
	ns := map[string]*introspect.Namespace{
		"public": {
			Views: []introspect.PgView{{
				Name:       "active_users",
				Schema:     "public",
				Definition: "SELECT id FROM public.users;",
			}},
		},
	}
	changes, err := Plan([]*sqlparse.Statement{s}, ns)
	if err != nil {
		t.Fatal(err)
	}
	if changes[0].Action != ActionDropRecreate {
		t.Fatalf("got %v, want drop-recreate", changes[0].Action)
	}
	if len(changes[0].SQL) != 2 {
		t.Fatalf("expected drop+create pair, got %d statements", len(changes[0].SQL))
	}
}
