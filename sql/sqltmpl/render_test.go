package sqltmpl

import (
	"fmt"
	"strings"
	"testing"
)

type fakeEscaper struct{}

func (fakeEscaper) EscapeIdent(parts []string) (string, error) {
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, "."), nil
}

func (fakeEscaper) EscapeLiteral(v any) (string, error) {
	return fmt.Sprintf("'%v'", v), nil
}

func render(t *testing.T, tmpl *Template, reindent bool) (string, []any) {
	t.Helper()
	s, params, err := Render(tmpl, Options{Escaper: fakeEscaper{}, Reindent: reindent})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return s, params
}

func TestParamsAllocatePositionalInOrder(t *testing.T) {
	tmpl := New("INSERT INTO t VALUES (", Param(1), ", ", Param("x"), ")")
	s, params := render(t, tmpl, false)
	if s != "INSERT INTO t VALUES ($1, $2)" {
		t.Errorf("got %q", s)
	}
	if len(params) != 2 || params[0] != 1 || params[1] != "x" {
		t.Errorf("unexpected params: %v", params)
	}
}

func TestInlineLiteralNotParameterized(t *testing.T) {
	tmpl := New("SELECT ", Val(1))
	s, params := render(t, tmpl, false)
	if s != "SELECT '1'" {
		t.Errorf("got %q", s)
	}
	if len(params) != 0 {
		t.Errorf("expected no params, got %v", params)
	}
}

func TestJoinAndArrayEmptyRenderEmptyString(t *testing.T) {
	tmpl := New("(", Join(",", nil), ")")
	s, _ := render(t, tmpl, false)
	if s != "()" {
		t.Errorf("got %q", s)
	}
	tmpl2 := New(Seq())
	s2, _ := render(t, tmpl2, false)
	if s2 != "" {
		t.Errorf("got %q", s2)
	}
}

func TestReindentAlignsNestedTemplate(t *testing.T) {
	inner := New("a,\n  b,\n  c")
	outer := New("SELECT\n    ", Expr(inner), "\nFROM t")
	s, _ := render(t, outer, true)
	want := "SELECT\n    a,\n    b,\n    c\nFROM t"
	if s != want {
		t.Errorf("got:\n%s\nwant:\n%s", s, want)
	}
}

func TestNestedTemplateSharesParameterList(t *testing.T) {
	inner := New(Param("inner"))
	outer := New("(", Expr(inner), ", ", Param("outer"), ")")
	s, params := render(t, outer, false)
	if s != "($1, $2)" {
		t.Errorf("got %q", s)
	}
	if len(params) != 2 || params[0] != "inner" || params[1] != "outer" {
		t.Errorf("unexpected params: %v", params)
	}
}

func TestIDEscaping(t *testing.T) {
	tmpl := New(ID("public", "Users"))
	s, _ := render(t, tmpl, false)
	if s != `"public"."Users"` {
		t.Errorf("got %q", s)
	}
}
