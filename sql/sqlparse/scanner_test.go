package sqlparse

import "testing"

func TestScanSplitsOnSemicolon(t *testing.T) {
	spans, err := Scan(`create table a (id int); create table b (id int);`)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
}

func TestScanIgnoresSemicolonInsideString(t *testing.T) {
	spans, err := Scan(`insert into a values ('a;b');`)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
}

func TestScanIgnoresSemicolonInsideDollarQuote(t *testing.T) {
	src := "create function f() returns int language sql as $$ select 1; select 2; $$;"
	spans, err := Scan(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1: %#v", len(spans), spans)
	}
}

func TestScanIgnoresSemicolonInLineComment(t *testing.T) {
	src := "create table a (id int); -- comment with ; inside\n"
	spans, err := Scan(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
}

func TestScanBeginAtomicBody(t *testing.T) {
	src := "create function f() returns int language sql begin atomic select 1; end;"
	spans, err := Scan(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
}

func TestScanUnclosedParenErrors(t *testing.T) {
	_, err := Scan("create table a (id int;")
	if err == nil {
		t.Fatal("expected error for unclosed paren")
	}
}
