package lua

import (
	"context"
	"testing"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/weft/internal/engine"
)

func newScriptEnv(t *testing.T) (*State, *engine.Engine) {
	t.Helper()
	eng := engine.New()
	t.Cleanup(func() { eng.Shutdown(context.Background()) })

	s := newTestState(t)
	if err := Bind(s, eng); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return s, eng
}

func TestGrammarMatchFromLua(t *testing.T) {
	s, _ := newScriptEnv(t)

	script := `
		local weft = require("weft")
		local g = assert(weft.compile('word = [a..z]+;'))

		if not g:match("abc") then error("abc did not match") end

		local ok, pos = g:match("abc1")
		if ok then error("abc1 matched") end
		if pos ~= 3 then error("longest = " .. pos) end
	`
	if err := s.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestGrammarCompileError(t *testing.T) {
	s, _ := newScriptEnv(t)

	script := `
		local weft = require("weft")
		local g, err = weft.compile('word = ;')
		if g ~= nil then error("bad grammar compiled") end
		if err == nil then error("no error message") end
	`
	if err := s.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestGrammarCapturesFromLua(t *testing.T) {
	s, _ := newScriptEnv(t)

	script := `
		local weft = require("weft")
		local g = assert(weft.compile([[
			@show doc = word (" " word)*;
			@show @highlight(name) word = [a..z]+;
		]]))

		local tree = g:captures("ab cd")
		local doc = tree[1]
		if doc.rule ~= "doc" then error("root = " .. doc.rule) end
		if doc.start ~= 0 or doc.finish ~= 5 then
			error("root span " .. doc.start .. "," .. doc.finish)
		end
		if #doc.children ~= 2 then error("children = " .. #doc.children) end

		local second = doc.children[2]
		if second.rule ~= "word" then error("child rule = " .. second.rule) end
		if second.start ~= 3 or second.finish ~= 5 then
			error("child span " .. second.start .. "," .. second.finish)
		end
		if second.tag ~= "name" then error("tag = " .. tostring(second.tag)) end

		local none, pos = g:captures("ab 1")
		if none ~= nil then error("broken input parsed") end
		if pos ~= 3 then error("failure pos = " .. pos) end
	`
	if err := s.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestGrammarSpansFromLua(t *testing.T) {
	s, _ := newScriptEnv(t)

	script := `
		local weft = require("weft")
		local g = assert(weft.compile('@show @highlight(word) w = [a..z]+;'))

		local spans = g:spans("go 12 run")
		if #spans ~= 2 then error("spans = " .. #spans) end
		if spans[1].start ~= 0 or spans[1].finish ~= 2 then
			error("span 1 at " .. spans[1].start .. "," .. spans[1].finish)
		end
		if spans[2].start ~= 6 or spans[2].finish ~= 9 then
			error("span 2 at " .. spans[2].start .. "," .. spans[2].finish)
		end
		if spans[1].tag ~= "word" then error("tag = " .. tostring(spans[1].tag)) end
	`
	if err := s.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}
}

func TestBufferAccessFromLua(t *testing.T) {
	s, eng := newScriptEnv(t)

	buf, err := eng.NewBuffer([]byte("hello world"))
	if err != nil {
		t.Fatalf("new buffer: %v", err)
	}
	if err := s.SetGlobal("bufid", lua.LString(buf.ID().String())); err != nil {
		t.Fatalf("set global: %v", err)
	}

	script := `
		local weft = require("weft")

		if weft.len(bufid) ~= 11 then error("len = " .. weft.len(bufid)) end
		if weft.text(bufid) ~= "hello world" then error("text = " .. weft.text(bufid)) end

		local found = false
		for _, id in ipairs(weft.buffers()) do
			if id == bufid then found = true end
		end
		if not found then error("buffer not listed") end

		local s, e = weft.find(bufid, "world")
		if s ~= 6 or e ~= 11 then error("find = " .. tostring(s)) end
		if weft.find(bufid, "absent") ~= nil then error("phantom match") end

		weft.replace(bufid, 0, 5, "goodbye")
		if weft.text(bufid) ~= "goodbye world" then error("after replace: " .. weft.text(bufid)) end

		weft.insert(bufid, 0, ">> ")
		if weft.text(bufid) ~= ">> goodbye world" then error("after insert: " .. weft.text(bufid)) end

		local rev = weft.delete(bufid, 0, 3)
		if weft.text(bufid) ~= "goodbye world" then error("after delete: " .. weft.text(bufid)) end
		if rev ~= 3 then error("revision = " .. rev) end
	`
	if err := s.DoString(script); err != nil {
		t.Fatalf("script: %v", err)
	}

	if got := string(buf.Text()); got != "goodbye world" {
		t.Errorf("buffer text = %q", got)
	}
}

func TestUnknownBufferRaises(t *testing.T) {
	s, _ := newScriptEnv(t)

	script := `
		local weft = require("weft")
		weft.text("11111111-2222-3333-4444-555555555555")
	`
	if err := s.DoString(script); err == nil {
		t.Fatal("unknown buffer did not raise")
	}
}
