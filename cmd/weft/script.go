package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/weft/internal/engine"
	"github.com/dshills/weft/internal/plugin/lua"
)

// runScript runs a Lua script with the weft module bound. Files named
// after the script are opened first and their buffer ids exposed to
// the script as the buffers table.
func runScript(args []string) int {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Second, "Script deadline")
	save := fs.Bool("save", false, "Save edited buffers back to their files")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: weft run [options] <script.lua> [files...]")
		return 2
	}
	script := fs.Arg(0)
	files := fs.Args()[1:]

	ed := engine.New()
	defer ed.Shutdown(context.Background())

	var bufs []*engine.Buffer
	for _, path := range files {
		buf, err := ed.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		bufs = append(bufs, buf)
	}

	state, err := lua.NewState(lua.WithTimeout(*timeout))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer state.Close()

	if err := lua.Bind(state, ed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	err = state.Do(func(L *glua.LState) error {
		tbl := L.NewTable()
		for _, buf := range bufs {
			tbl.Append(glua.LString(buf.ID().String()))
		}
		L.SetGlobal("buffers", tbl)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if err := state.DoFile(script); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *save {
		for _, buf := range bufs {
			if err := buf.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				return 1
			}
		}
	}
	return 0
}
