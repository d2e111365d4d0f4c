package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// ToLua converts a Go value into a Lua value. Maps and slices become
// tables; unsupported kinds become nil.
func ToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(ToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, ToLua(L, item))
		}
		return tbl
	case lua.LValue:
		return val
	default:
		return lua.LNil
	}
}

// ToGo converts a Lua value into a Go value. Tables with consecutive
// integer keys from 1 become []any; other tables become
// map[string]any. Cycles are cut to nil.
func ToGo(v lua.LValue) any {
	return toGo(v, map[*lua.LTable]bool{})
}

func toGo(v lua.LValue, seen map[*lua.LTable]bool) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LString:
		return string(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case *lua.LTable:
		if seen[val] {
			return nil
		}
		seen[val] = true
		defer delete(seen, val)

		if n := val.Len(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				arr = append(arr, toGo(val.RawGetInt(i), seen))
			}
			return arr
		}
		m := map[string]any{}
		val.ForEach(func(k, item lua.LValue) {
			m[k.String()] = toGo(item, seen)
		})
		return m
	default:
		return nil
	}
}
