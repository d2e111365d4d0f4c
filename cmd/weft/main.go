// Package main is the entry point for the weft editor core tool.
package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "highlight":
		return runHighlight(args[1:])
	case "check":
		return runCheck(args[1:])
	case "run":
		return runScript(args[1:])
	case "version", "-version", "--version":
		fmt.Printf("weft %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		return 0
	case "help", "-h", "-help", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "weft: unknown command %q\n\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Weft - text editor core\n\n")
	fmt.Fprintf(os.Stderr, "Usage: weft <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  highlight   Open a file, apply edits, print the capture stream as JSON\n")
	fmt.Fprintf(os.Stderr, "  check       Compile grammar files and report errors\n")
	fmt.Fprintf(os.Stderr, "  run         Run a Lua script against opened buffers\n")
	fmt.Fprintf(os.Stderr, "  version     Show version information\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  weft highlight data.json\n")
	fmt.Fprintf(os.Stderr, "  weft highlight -language rust -edits fix.edits main.rs\n")
	fmt.Fprintf(os.Stderr, "  weft check grammars/json.peg\n")
	fmt.Fprintf(os.Stderr, "  weft run fmt.lua notes.md\n")
}
