package lua

import (
	"context"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single script or call when no option
// overrides it.
const DefaultTimeout = 5 * time.Second

// State is a sandboxed Lua runtime. The underlying interpreter is not
// goroutine safe; State serializes all access behind a mutex, so one
// State may be shared across goroutines at the cost of contention.
type State struct {
	mu      sync.Mutex
	L       *lua.LState
	timeout time.Duration
	closed  bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithTimeout bounds each DoString, DoFile, and Call. Scripts that run
// past the deadline are cancelled at the next interpreter safepoint.
func WithTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewState creates a sandboxed state. Only the base, table, string,
// and math libraries are open; io, os, debug, and code loading are
// unavailable.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua library %s: %w", lib.name, err)
		}
	}
	seal(L)

	s.L = L
	return s, nil
}

// DoString runs a chunk of Lua source.
func (s *State) DoString(src string) error {
	return s.with(func(L *lua.LState) error {
		return L.DoString(src)
	})
}

// DoFile runs a Lua file.
func (s *State) DoFile(path string) error {
	return s.with(func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return &ScriptError{Path: path, Err: err}
		}
		return nil
	})
}

// Call invokes a global Lua function by name and returns its results.
func (s *State) Call(name string, args ...lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue
	err := s.with(func(L *lua.LState) error {
		fn := L.GetGlobal(name)
		if fn == lua.LNil {
			return fmt.Errorf("%w: %s", ErrNoFunction, name)
		}
		top := L.GetTop()
		if err := L.CallByParam(lua.P{
			Fn:      fn,
			NRet:    lua.MultRet,
			Protect: true,
		}, args...); err != nil {
			return err
		}
		for i := top + 1; i <= L.GetTop(); i++ {
			results = append(results, L.Get(i))
		}
		L.SetTop(top)
		return nil
	})
	return results, err
}

// Preload registers a module loadable from Lua with require(name).
func (s *State) Preload(name string, loader lua.LGFunction) error {
	return s.with(func(L *lua.LState) error {
		L.PreloadModule(name, loader)
		allowModule(L, name)
		return nil
	})
}

// SetGlobal binds a value into the script environment.
func (s *State) SetGlobal(name string, v lua.LValue) error {
	return s.with(func(L *lua.LState) error {
		L.SetGlobal(name, v)
		return nil
	})
}

// Do runs fn with exclusive access to the interpreter. The deadline
// applies as it does for DoString.
func (s *State) Do(fn func(L *lua.LState) error) error {
	return s.with(fn)
}

func (s *State) with(fn func(L *lua.LState) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	if err := fn(s.L); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return err
	}
	return nil
}

// Close releases the interpreter. Further calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStateClosed
	}
	s.closed = true
	s.L.Close()
	return nil
}
