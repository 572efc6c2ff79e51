package ident

import "testing"

func TestParseRenderRoundTrip(t *testing.T) {
	cases := []Id{
		New("public", "users"),
		New("app", "Weird Name"),
		New("", "orders"),
		New("app", `quote"inside`),
	}
	for _, id := range cases {
		got, err := Parse(id.String())
		if err != nil {
			t.Fatalf("Parse(%s): %v", id.String(), err)
		}
		if !got.Equal(id) {
			t.Errorf("round-trip mismatch: %+v != %+v", got, id)
		}
	}
}

func TestEqualCanonicalizesMissingSchema(t *testing.T) {
	a := New("", "t")
	b := New("public", "t")
	if !a.Equal(b) {
		t.Errorf("expected %+v to equal %+v", a, b)
	}
}

func TestToRegexMatchesQuotedAndUnquoted(t *testing.T) {
	id := New("app", "users")
	re := id.ToRegex()
	for _, s := range []string{"app.users", `"app"."users"`, "users", `"users"`} {
		if !re.MatchString(s) {
			t.Errorf("expected regex to match %q", s)
		}
	}
	if re.MatchString("app.users2") {
		// "users2" should not match a pattern anchored at "users" followed
		// by the rest of the alternation boundary; ensure no over-matching
		// of unrelated substrings by checking full-string equivalence.
		if re.FindString("app.users2") == "app.users2" {
			t.Errorf("regex over-matched unrelated substring")
		}
	}
}

func TestQuotePartSafeSet(t *testing.T) {
	if QuotePart("users") != "users" {
		t.Errorf("expected unquoted safe identifier")
	}
	if QuotePart("Users") == "Users" {
		t.Errorf("expected mixed-case identifier to be quoted")
	}
	if QuotePart(`a"b`) != `"a""b"` {
		t.Errorf("expected embedded quote to be doubled")
	}
}

func TestParseTypeRoundTrip(t *testing.T) {
	ty, err := ParseType("pg_catalog.varchar(40)[][]")
	if err != nil {
		t.Fatal(err)
	}
	if ty.Id.Name != "varchar" || ty.Id.Schema != "pg_catalog" {
		t.Errorf("unexpected id: %+v", ty.Id)
	}
	if len(ty.Modifiers) != 1 || ty.Modifiers[0] != 40 {
		t.Errorf("unexpected modifiers: %v", ty.Modifiers)
	}
	if len(ty.Bounds) != 2 || ty.Bounds[0] != -1 || ty.Bounds[1] != -1 {
		t.Errorf("unexpected bounds: %v", ty.Bounds)
	}
	if got := ty.String(); got != "pg_catalog.varchar(40)[][]" {
		t.Errorf("String() = %q", got)
	}
}

func TestParseTypeFixedBound(t *testing.T) {
	ty, err := ParseType("integer[3]")
	if err != nil {
		t.Fatal(err)
	}
	if len(ty.Bounds) != 1 || ty.Bounds[0] != 3 {
		t.Errorf("unexpected bounds: %v", ty.Bounds)
	}
}
