package lua

import (
	"context"
	"errors"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/weft/internal/engine"
	"github.com/dshills/weft/internal/parser"
)

const grammarTypeName = "weft.grammar"

// Bind exposes the editor to scripts as the weft module. Scripts
// obtain it with require("weft"). Positions crossing the boundary are
// byte offsets, zero based, matching the buffer API.
func Bind(s *State, eng *engine.Engine) error {
	b := &binding{eng: eng}
	return s.Preload("weft", b.loader)
}

type binding struct {
	eng *engine.Engine
}

func (b *binding) loader(L *lua.LState) int {
	mt := L.NewTypeMetatable(grammarTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"match":    grammarMatch,
		"captures": grammarCaptures,
		"scan":     grammarScan,
		"spans":    grammarSpans,
	}))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"compile": compileGrammar,
		"buffers": b.buffers,
		"text":    b.text,
		"len":     b.length,
		"insert":  b.insert,
		"delete":  b.delete,
		"replace": b.replace,
		"find":    b.find,
	})
	L.Push(mod)
	return 1
}

// compileGrammar builds a parser from grammar source and returns it as
// userdata.
func compileGrammar(L *lua.LState) int {
	src := L.CheckString(1)
	p, err := parser.NewString(src)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	ud := L.NewUserData()
	ud.Value = p
	L.SetMetatable(ud, L.GetTypeMetatable(grammarTypeName))
	L.Push(ud)
	return 1
}

func checkGrammar(L *lua.LState) *parser.Parser {
	ud := L.CheckUserData(1)
	if p, ok := ud.Value.(*parser.Parser); ok {
		return p
	}
	L.ArgError(1, "grammar expected")
	return nil
}

func parseContext(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// grammarMatch reports whether the grammar matches the whole subject.
// On failure the second result is the furthest byte position reached.
func grammarMatch(L *lua.LState) int {
	p := checkGrammar(L)
	subject := L.CheckString(2)

	_, err := p.ParseBytes(parseContext(L), []byte(subject))
	if err != nil {
		var inc *parser.IncompleteError
		if errors.As(err, &inc) {
			L.Push(lua.LFalse)
			L.Push(lua.LNumber(inc.Longest))
			return 2
		}
		L.RaiseError("match: %s", err.Error())
		return 0
	}
	L.Push(lua.LTrue)
	return 1
}

// grammarCaptures parses the whole subject and returns the capture
// tree, or nil plus the furthest position on failure.
func grammarCaptures(L *lua.LState) int {
	p := checkGrammar(L)
	subject := L.CheckString(2)

	tree, err := p.ParseBytes(parseContext(L), []byte(subject))
	if err != nil {
		var inc *parser.IncompleteError
		if errors.As(err, &inc) {
			L.Push(lua.LNil)
			L.Push(lua.LNumber(inc.Longest))
			return 2
		}
		L.RaiseError("captures: %s", err.Error())
		return 0
	}
	L.Push(captureTable(L, tree))
	return 1
}

// grammarScan matches the grammar anywhere in the subject and returns
// the combined capture tree.
func grammarScan(L *lua.LState) int {
	p := checkGrammar(L)
	subject := L.CheckString(2)

	tree, err := p.Scan(parseContext(L), parser.Bytes([]byte(subject)))
	if err != nil {
		L.RaiseError("scan: %s", err.Error())
		return 0
	}
	L.Push(captureTable(L, tree))
	return 1
}

// grammarSpans scans the subject and returns the flattened span
// stream.
func grammarSpans(L *lua.LState) int {
	p := checkGrammar(L)
	subject := L.CheckString(2)

	tree, err := p.Scan(parseContext(L), parser.Bytes([]byte(subject)))
	if err != nil {
		L.RaiseError("spans: %s", err.Error())
		return 0
	}

	out := L.NewTable()
	for _, sp := range tree.Spans() {
		entry := L.NewTable()
		entry.RawSetString("rule", lua.LString(sp.Rule))
		entry.RawSetString("start", lua.LNumber(sp.Start))
		entry.RawSetString("finish", lua.LNumber(sp.End))
		if sp.HighlightTag != "" {
			entry.RawSetString("tag", lua.LString(sp.HighlightTag))
		}
		out.Append(entry)
	}
	L.Push(out)
	return 1
}

func captureTable(L *lua.LState, tree *parser.CaptureTree) *lua.LTable {
	out := L.NewTable()
	for _, root := range tree.Roots {
		out.Append(captureNode(L, root))
	}
	return out
}

func captureNode(L *lua.LState, n *parser.CaptureNode) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("rule", lua.LString(n.Rule))
	tbl.RawSetString("start", lua.LNumber(n.Start))
	tbl.RawSetString("finish", lua.LNumber(n.End))
	if n.HighlightTag != "" {
		tbl.RawSetString("tag", lua.LString(n.HighlightTag))
	}
	if len(n.Children) > 0 {
		children := L.NewTable()
		for _, c := range n.Children {
			children.Append(captureNode(L, c))
		}
		tbl.RawSetString("children", children)
	}
	return tbl
}

func (b *binding) checkBuffer(L *lua.LState, idx int) *engine.Buffer {
	raw := L.CheckString(idx)
	id, err := uuid.Parse(raw)
	if err != nil {
		L.ArgError(idx, "buffer id expected")
		return nil
	}
	buf, ok := b.eng.Get(id)
	if !ok {
		L.RaiseError("no buffer %s", raw)
		return nil
	}
	return buf
}

func (b *binding) buffers(L *lua.LState) int {
	out := L.NewTable()
	for _, buf := range b.eng.Buffers() {
		out.Append(lua.LString(buf.ID().String()))
	}
	L.Push(out)
	return 1
}

func (b *binding) text(L *lua.LState) int {
	buf := b.checkBuffer(L, 1)
	L.Push(lua.LString(buf.Text()))
	return 1
}

func (b *binding) length(L *lua.LState) int {
	buf := b.checkBuffer(L, 1)
	L.Push(lua.LNumber(buf.Len()))
	return 1
}

func (b *binding) insert(L *lua.LState) int {
	buf := b.checkBuffer(L, 1)
	pos := L.CheckInt64(2)
	text := L.CheckString(3)

	rev, err := buf.Insert(pos, []byte(text))
	if err != nil {
		L.RaiseError("insert: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(rev))
	return 1
}

func (b *binding) delete(L *lua.LState) int {
	buf := b.checkBuffer(L, 1)
	start := L.CheckInt64(2)
	end := L.CheckInt64(3)

	rev, err := buf.Delete(start, end)
	if err != nil {
		L.RaiseError("delete: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(rev))
	return 1
}

func (b *binding) replace(L *lua.LState) int {
	buf := b.checkBuffer(L, 1)
	start := L.CheckInt64(2)
	end := L.CheckInt64(3)
	text := L.CheckString(4)

	rev, err := buf.Replace(start, end, []byte(text))
	if err != nil {
		L.RaiseError("replace: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(rev))
	return 1
}

// find locates the first occurrence of pattern at or after from and
// returns its start and end, or nil when absent.
func (b *binding) find(L *lua.LState) int {
	buf := b.checkBuffer(L, 1)
	pattern := L.CheckString(2)
	from := L.OptInt64(3, 0)

	r, ok := buf.Find([]byte(pattern), from)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LNumber(r.Start))
	L.Push(lua.LNumber(r.End))
	return 2
}
