package depgraph

import (
	"testing"

	"github.com/nanopg/nanopg/sql/ident"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

func table(name string, refs ...ident.Id) *sqlparse.Statement {
	return &sqlparse.Statement{
		Kind: sqlparse.KindTable,
		ID:   ident.New("public", name),
		Table: &sqlparse.TablePayload{
			Columns: []sqlparse.Column{{Name: "parent_id", Refs: refs}},
		},
	}
}

func TestLinkOrdersDependenciesFirst(t *testing.T) {
	parent := table("parent")
	child := table("child", ident.New("public", "parent"))
	set, warnings, err := Link([]*sqlparse.Statement{child, parent})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	order := set.Statements()
	if len(order) != 2 || order[0].ID.Name != "parent" || order[1].ID.Name != "child" {
		t.Fatalf("unexpected order: %v, %v", order[0].ID, order[1].ID)
	}
}

func TestLinkTiesBreakByNameAscending(t *testing.T) {
	a := table("bbb")
	b := table("aaa")
	set, _, err := Link([]*sqlparse.Statement{a, b})
	if err != nil {
		t.Fatal(err)
	}
	order := set.Statements()
	if order[0].ID.Name != "aaa" || order[1].ID.Name != "bbb" {
		t.Fatalf("unexpected tie-break order: %v, %v", order[0].ID, order[1].ID)
	}
}

func TestLinkBreaksCycleAndWarns(t *testing.T) {
	a := table("a", ident.New("public", "b"))
	b := table("b", ident.New("public", "a"))
	set, warnings, err := Link([]*sqlparse.Statement{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) == 0 {
		t.Fatal("expected a cycle warning")
	}
	if set.Len() != 2 {
		t.Fatalf("expected both statements still present after cycle break, got %d", set.Len())
	}
}

func TestLinkAnnotatesDepsOutAndDepsIn(t *testing.T) {
	parent := table("parent")
	child := table("child", ident.New("public", "parent"))
	if _, _, err := Link([]*sqlparse.Statement{child, parent}); err != nil {
		t.Fatal(err)
	}
	if len(child.DepsOut) != 1 || child.DepsOut[0].Name != "parent" {
		t.Fatalf("unexpected child.DepsOut: %v", child.DepsOut)
	}
	if len(parent.DepsIn) != 1 || parent.DepsIn[0].Name != "child" {
		t.Fatalf("unexpected parent.DepsIn: %v", parent.DepsIn)
	}
}
