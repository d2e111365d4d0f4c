package lua

import (
	lua "github.com/yuin/gopher-lua"
)

// Modules of the standard library that scripts may require. Everything
// else, including disk loading, is rejected.
var safeModules = map[string]bool{
	"string": true,
	"table":  true,
	"math":   true,
}

// seal locks the script environment down. Code loading primitives are
// removed so scripts cannot smuggle in chunks past the sandbox, and
// require is replaced with a whitelist that serves only the safe
// standard modules and modules preloaded from Go.
func seal(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}

	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if ok {
		L.SetField(pkg, "path", lua.LString(""))
		L.SetField(pkg, "cpath", lua.LString(""))
	}

	allowed := L.NewTable()
	for name := range safeModules {
		allowed.RawSetString(name, lua.LTrue)
	}
	L.SetField(L.Get(lua.RegistryIndex), "weft_allowed_modules", allowed)

	origRequire := L.GetGlobal("require")
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		allowed := L.GetField(L.Get(lua.RegistryIndex), "weft_allowed_modules")
		if tbl, ok := allowed.(*lua.LTable); !ok || tbl.RawGetString(name) != lua.LTrue {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(origRequire)
		L.Push(lua.LString(name))
		L.Call(1, 1)
		return 1
	}))
}

// allowModule adds a preloaded module to the require whitelist.
func allowModule(L *lua.LState, name string) {
	allowed := L.GetField(L.Get(lua.RegistryIndex), "weft_allowed_modules")
	if tbl, ok := allowed.(*lua.LTable); ok {
		tbl.RawSetString(name, lua.LTrue)
	}
}
