package pgwire

import (
	"testing"

	"github.com/google/uuid"
)

func TestDecodeScalarTypes(t *testing.T) {
	r := DefaultRegistry()
	cases := []struct {
		oid  uint32
		raw  string
		want any
	}{
		{OIDBool, "t", true},
		{OIDBool, "f", false},
		{OIDInt4, "42", int64(42)},
		{OIDFloat8, "3.5", float64(3.5)},
		{OIDText, "hello", "hello"},
	}
	for _, c := range cases {
		got, err := r.Decode(c.oid, []byte(c.raw))
		if err != nil {
			t.Fatalf("Decode(%d, %q): %v", c.oid, c.raw, err)
		}
		if got != c.want {
			t.Errorf("Decode(%d, %q) = %v, want %v", c.oid, c.raw, got, c.want)
		}
	}
}

func TestDecodeUUID(t *testing.T) {
	r := DefaultRegistry()
	want := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")
	got, err := r.Decode(OIDUUID, []byte(want.String()))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Decode(OIDUUID, ...) = %v, want %v", got, want)
	}
}

func TestDecodeUUIDRejectsInvalid(t *testing.T) {
	r := DefaultRegistry()
	if _, err := r.Decode(OIDUUID, []byte("not-a-uuid")); err == nil {
		t.Error("expected error for invalid uuid")
	}
}

func TestDecodeNullIsNil(t *testing.T) {
	r := DefaultRegistry()
	got, err := r.Decode(OIDInt4, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestDecodeArrayOfInt(t *testing.T) {
	r := DefaultRegistry()
	r.RegisterArray(1007, OIDInt4)
	got, err := r.Decode(1007, []byte("{1,2,3}"))
	if err != nil {
		t.Fatal(err)
	}
	arr, ok := got.([]any)
	if !ok || len(arr) != 3 {
		t.Fatalf("unexpected array decode: %#v", got)
	}
	if arr[0] != int64(1) || arr[2] != int64(3) {
		t.Errorf("unexpected array values: %v", arr)
	}
}

func TestDecodeArrayWithQuotedElementAndNull(t *testing.T) {
	r := DefaultRegistry()
	r.RegisterArray(1009, OIDText)
	got, err := r.Decode(1009, []byte(`{"a,b",NULL,c}`))
	if err != nil {
		t.Fatal(err)
	}
	arr := got.([]any)
	if len(arr) != 3 || arr[0] != "a,b" || arr[1] != nil || arr[2] != "c" {
		t.Errorf("unexpected array values: %#v", arr)
	}
}

func TestDecodeUnknownOIDFallsBackToText(t *testing.T) {
	r := DefaultRegistry()
	got, err := r.Decode(999999, []byte("whatever"))
	if err != nil {
		t.Fatal(err)
	}
	if got != "whatever" {
		t.Errorf("got %v", got)
	}
}
