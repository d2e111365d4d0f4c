package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dshills/weft/internal/parser"
)

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	quiet := fs.Bool("q", false, "Report errors only")
	fs.Parse(args)

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: weft check <grammar.peg>...")
		return 2
	}

	failed := 0
	for _, path := range fs.Args() {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failed++
			continue
		}
		p, err := parser.New(f)
		f.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		if !*quiet {
			fmt.Printf("%s: ok, %d rules\n", path, len(p.Grammar().Rules))
		}
	}
	if failed > 0 {
		return 1
	}
	return 0
}
