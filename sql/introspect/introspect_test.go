package introspect

import "testing"

func TestToOIDHandlesInt64AndUint32(t *testing.T) {
	if toOID(int64(42)) != 42 {
		t.Fatal("int64 conversion failed")
	}
	if toOID(uint32(7)) != 7 {
		t.Fatal("uint32 passthrough failed")
	}
	if toOID("nope") != 0 {
		t.Fatal("expected zero-value fallback for unrecognized type")
	}
}

func TestToStringSliceFromAnySlice(t *testing.T) {
	got := toStringSlice([]any{"a", "b", nil})
	if len(got) != 3 || got[0] != "a" || got[2] != "" {
		t.Fatalf("unexpected slice: %#v", got)
	}
}

func TestToOIDSliceFromAnySlice(t *testing.T) {
	got := toOIDSlice([]any{int64(1), int64(2)})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected slice: %#v", got)
	}
}
