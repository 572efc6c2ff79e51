package migrate

import (
	"errors"
	"testing"

	"github.com/nanopg/nanopg/sql/internal/nanoerr"
	"github.com/nanopg/nanopg/sql/ident"
	"github.com/nanopg/nanopg/sql/sqlparse"
)

func TestFormatFailureStripsServerPrefixes(t *testing.T) {
	s := &sqlparse.Statement{
		Kind:       sqlparse.KindTable,
		ID:         ident.New("public", "users"),
		SourceFile: "schema/users.sql",
		SourceLine: 3,
	}
	cause := nanoerr.New(nanoerr.CodePGResult, "ERROR:  LINE 1:  syntax error at or near \"foo\"")
	err := formatFailure(s, cause)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if want := "table public.users"; !contains(msg, want) {
		t.Errorf("missing %q in %q", want, msg)
	}
	if want := "schema/users.sql:3"; !contains(msg, want) {
		t.Errorf("missing %q in %q", want, msg)
	}
	if contains(msg, "ERROR:") {
		t.Errorf("ERROR: prefix not stripped: %q", msg)
	}
}

func TestFormatFailureWrapsNonNanoerr(t *testing.T) {
	s := &sqlparse.Statement{Kind: sqlparse.KindView, ID: ident.New("public", "v")}
	err := formatFailure(s, errors.New("boom"))
	if !contains(err.Error(), "boom") {
		t.Fatalf("expected wrapped cause message, got %q", err.Error())
	}
}

func TestStatementFileNameFormat(t *testing.T) {
	s := &sqlparse.Statement{Kind: sqlparse.KindTable, ID: ident.New("public", "Users")}
	name := statementFileName(7, s)
	if name != "007-public-users.sql" {
		t.Fatalf("got %q", name)
	}
}

func contains(s, sub string) bool {
	return len(s) >= len(sub) && (s == sub || indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
