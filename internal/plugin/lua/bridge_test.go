package lua

import (
	"reflect"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestToLuaScalars(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	tests := []struct {
		in   any
		want lua.LValue
	}{
		{nil, lua.LNil},
		{true, lua.LTrue},
		{"text", lua.LString("text")},
		{[]byte("raw"), lua.LString("raw")},
		{42, lua.LNumber(42)},
		{int64(7), lua.LNumber(7)},
		{uint64(9), lua.LNumber(9)},
		{1.5, lua.LNumber(1.5)},
		{struct{}{}, lua.LNil},
	}
	for _, tt := range tests {
		if got := ToLua(L, tt.in); got != tt.want {
			t.Errorf("ToLua(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestToLuaTables(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	arr := ToLua(L, []any{"a", int64(2)}).(*lua.LTable)
	if arr.Len() != 2 || arr.RawGetInt(1) != lua.LString("a") || arr.RawGetInt(2) != lua.LNumber(2) {
		t.Errorf("array table = %v %v", arr.RawGetInt(1), arr.RawGetInt(2))
	}

	m := ToLua(L, map[string]any{"k": true}).(*lua.LTable)
	if m.RawGetString("k") != lua.LTrue {
		t.Errorf("map table k = %v", m.RawGetString("k"))
	}
}

func TestToGo(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(`result = {name = "x", count = 3, items = {1, 2.5, "three"}}`); err != nil {
		t.Fatalf("script: %v", err)
	}

	got := ToGo(L.GetGlobal("result"))
	want := map[string]any{
		"name":  "x",
		"count": int64(3),
		"items": []any{int64(1), 2.5, "three"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToGo = %#v, want %#v", got, want)
	}
}

func TestToGoCycle(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := L.DoString(`loop = {}; loop.self = loop`); err != nil {
		t.Fatalf("script: %v", err)
	}

	got := ToGo(L.GetGlobal("loop"))
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("ToGo = %#v", got)
	}
	if m["self"] != nil {
		t.Errorf("cycle not cut: %#v", m["self"])
	}
}
