package pgwire

import "testing"

func TestPgTextArrayLiteralQuotesElements(t *testing.T) {
	got := pgTextArrayLiteral([]string{"public", "has\"quote"})
	want := `{"public","has\"quote"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPgTextArrayLiteralEmpty(t *testing.T) {
	if got := pgTextArrayLiteral(nil); got != "{}" {
		t.Fatalf("got %q, want {}", got)
	}
}

func TestEscapeLiteralArrayRoundTrip(t *testing.T) {
	e := escaper{}
	got, err := e.EscapeLiteral([]string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got != `'{"a","b"}'` {
		t.Fatalf("got %q", got)
	}
}

func TestQuoteIdentPartQuotesUnsafeNames(t *testing.T) {
	if quoteIdentPart("users") != "users" {
		t.Fatal("safe identifier should be unquoted")
	}
	if quoteIdentPart("My Table") != `"My Table"` {
		t.Fatalf("got %q", quoteIdentPart("My Table"))
	}
}
