package sqlparse

import "testing"

func TestParseFileClassifiesTable(t *testing.T) {
	src := `create table public.users (
		id bigint not null,
		email text not null,
		bio text,
		primary key (id)
	);`
	stmts, err := ParseFile("users.sql", src)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindTable {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
	tbl := stmts[0].Table
	if len(tbl.Columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(tbl.Columns))
	}
	if len(tbl.PrimaryKey) != 1 || tbl.PrimaryKey[0] != "id" {
		t.Fatalf("unexpected primary key: %v", tbl.PrimaryKey)
	}
	if tbl.Columns[2].Nullable != true {
		t.Errorf("bio should be nullable")
	}
}

func TestParseFileClassifiesEnum(t *testing.T) {
	stmts, err := ParseFile("e.sql", `create type mood as enum ('sad', 'ok', 'happy');`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindEnumType {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
	if len(stmts[0].Enum.Labels) != 3 {
		t.Fatalf("got %d labels", len(stmts[0].Enum.Labels))
	}
}

func TestParseFileClassifiesViewAndExtractsSubquery(t *testing.T) {
	stmts, err := ParseFile("v.sql", `create view public.active_users as select id, email from public.users where active;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindView {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
	v := stmts[0].View
	if v.Subquery == "" {
		t.Fatal("expected a non-empty Subquery")
	}
	want := "select id, email from public.users where active"
	if v.Subquery != want {
		t.Errorf("Subquery = %q, want %q", v.Subquery, want)
	}
	if len(v.Refs) != 1 || v.Refs[0].Name != "users" {
		t.Errorf("unexpected refs: %v", v.Refs)
	}
}

func TestParseFileClassifiesComposite(t *testing.T) {
	stmts, err := ParseFile("c.sql", `create type point2d as (x float8, y float8);`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindCompositeType {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
	if len(stmts[0].Composite.Columns) != 2 {
		t.Fatalf("got %d columns", len(stmts[0].Composite.Columns))
	}
}

func TestParseFileClassifiesExtension(t *testing.T) {
	stmts, err := ParseFile("x.sql", `create extension if not exists pgcrypto;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindExtension {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
	if stmts[0].ID.Name != "pgcrypto" {
		t.Errorf("got extension name %q", stmts[0].ID.Name)
	}
}

func TestParseFileClassifiesRoutine(t *testing.T) {
	stmts, err := ParseFile("r.sql", `create function add_one(n int) returns int language sql as $$ select n + 1 $$;`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 || stmts[0].Kind != KindRoutine {
		t.Fatalf("unexpected statements: %#v", stmts)
	}
	r := stmts[0].Routine
	if len(r.InParams) != 1 || r.InParams[0].Name != "n" {
		t.Fatalf("unexpected in-params: %#v", r.InParams)
	}
	if r.ReturnType == nil || r.IsProcedure {
		t.Fatalf("unexpected return shape: %#v", r)
	}
}

func TestParseFileSkipsIndexStatements(t *testing.T) {
	stmts, err := ParseFile("i.sql", `create index on users (email);`)
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 0 {
		t.Fatalf("expected index statement to be skipped, got %#v", stmts)
	}
}

func TestParseFileReturnsCodeFrameOnSyntaxError(t *testing.T) {
	_, err := ParseFile("bad.sql", `create table ( ;`)
	if err == nil {
		t.Fatal("expected parse error")
	}
}
