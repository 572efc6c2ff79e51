package codegen

import (
	"bytes"
	"strings"
	"testing"

	"github.com/nanopg/nanopg/sql/introspect"
)

func render(t *testing.T, g *Generator, ns *introspect.Namespace) string {
	t.Helper()
	f := g.GenerateNamespace(ns)
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestNamerFieldPreserveCapitalizesLeadingLetter(t *testing.T) {
	n := Namer{Casing: CasingPreserve}
	if got := n.Field("user_id"); got != "User_id" {
		t.Errorf("Field(user_id) = %q", got)
	}
}

func TestNamerFieldCamelFullyCases(t *testing.T) {
	n := Namer{Casing: CasingCamel}
	if got := n.Field("user_id"); got != "UserId" {
		t.Errorf("Field(user_id) = %q", got)
	}
}

func TestNamerTypeAlwaysPascalCases(t *testing.T) {
	n := Namer{Casing: CasingPreserve}
	if got := n.Type("order_status"); got != "OrderStatus" {
		t.Errorf("Type(order_status) = %q", got)
	}
}

func TestGenEnumRendersLabelConstants(t *testing.T) {
	g := NewGenerator(Config{PackageName: "public", Namer: Namer{Casing: CasingCamel}}, nil)
	ns := &introspect.Namespace{Schema: "public", EnumTypes: []introspect.PgEnum{
		{Name: "order_status", Schema: "public", Labels: []string{"pending", "shipped"}},
	}}
	out := render(t, g, ns)
	for _, want := range []string{"type OrderStatus string", "OrderStatusPending", "OrderStatusShipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestGenCompositeRendersStructAndMapper(t *testing.T) {
	g := NewGenerator(Config{PackageName: "public", Namer: Namer{Casing: CasingCamel}}, nil)
	ns := &introspect.Namespace{Schema: "public", CompositeTypes: []introspect.PgComposite{
		{Name: "address", Schema: "public", Fields: []introspect.PgField{
			{Name: "street", TypeOID: 25},
			{Name: "zip", TypeOID: 25, Nullable: true},
		}},
	}}
	out := render(t, g, ns)
	for _, want := range []string{"type Address struct", "Street string", "Zip    *string", "func scanAddressRow"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestGenTableOmitsIdentityAlwaysFromInsertShape(t *testing.T) {
	g := NewGenerator(Config{PackageName: "public", Namer: Namer{Casing: CasingCamel}}, nil)
	ns := &introspect.Namespace{Schema: "public", Tables: []introspect.PgTable{
		{
			PgComposite: introspect.PgComposite{Name: "users", Schema: "public", Fields: []introspect.PgField{
				{Name: "id", TypeOID: 23},
				{Name: "email", TypeOID: 25},
			}},
			PrimaryKey: []string{"id"},
			HasDefault: []bool{true, false},
			Identity:   []string{"always", "none"},
		},
	}}
	out := render(t, g, ns)
	if !strings.Contains(out, "type UsersInsert struct") {
		t.Fatalf("missing UsersInsert in:\n%s", out)
	}
	insertStart := strings.Index(out, "type UsersInsert struct")
	insertBody := out[insertStart : insertStart+200]
	if strings.Contains(insertBody, "Id ") {
		t.Errorf("identity-always column leaked into insert shape:\n%s", insertBody)
	}
	if !strings.Contains(out, "type UsersUpsert struct") {
		t.Fatalf("missing UsersUpsert in:\n%s", out)
	}
}

func TestGenRoutineSelectsBindFunctionByShape(t *testing.T) {
	g := NewGenerator(Config{PackageName: "public", Namer: Namer{Casing: CasingCamel}}, nil)
	ns := &introspect.Namespace{Schema: "public", Routines: []introspect.PgRoutine{
		{Kind: "f", Schema: "public", Name: "count_users", ReturnTypeOID: 23, ReturnSet: false},
		{Kind: "f", Schema: "public", Name: "list_user_ids", ReturnTypeOID: 23, ReturnSet: true},
		{Kind: "p", Schema: "public", Name: "archive_user", ParamTypes: []uint32{23}, ParamNames: []string{"user_id"}},
	}}
	out := render(t, g, ns)
	if !strings.Contains(out, "bind.QueryValue[any]") {
		t.Errorf("expected scalar single-row routine to use bind.QueryValue, got:\n%s", out)
	}
	if !strings.Contains(out, "bind.QueryValueList[any]") {
		t.Errorf("expected scalar set-returning routine to use bind.QueryValueList, got:\n%s", out)
	}
	if !strings.Contains(out, "bind.Procedure(") {
		t.Errorf("expected procedure to use bind.Procedure, got:\n%s", out)
	}
}
