// Package lua embeds a sandboxed Lua runtime for editor scripting.
//
// Scripts run with only the base, table, string, and math libraries.
// Code loading from disk and the io, os, and debug modules are
// unavailable, and every script or call is bounded by a deadline.
//
// Bind exposes the editor as the weft module:
//
//	local weft = require("weft")
//	local g = weft.compile('doc = "a"+;')
//	local ok = g:match("aaa")
//	for _, id in ipairs(weft.buffers()) do
//	    weft.insert(id, 0, "-- ")
//	end
//
// All positions crossing the boundary are zero based byte offsets.
package lua
