package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/dshills/weft/internal/config"
	"github.com/dshills/weft/internal/engine"
	"github.com/dshills/weft/internal/highlight"
	"github.com/dshills/weft/internal/parser"
)

// Shipped grammars the extension fallback knows about when no
// configuration names a language.
var builtinLanguages = map[string]string{
	"json": "json",
	"md":   "markdown",
	"peg":  "peg",
	"rs":   "rust",
}

func runHighlight(args []string) int {
	fs := flag.NewFlagSet("highlight", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	language := fs.String("language", "", "Language name (default: resolved from the file name)")
	grammarDir := fs.String("grammars", "", "Grammar directory (overrides configuration)")
	engineName := fs.String("engine", "", "Parse engine, interpreter or compiled")
	editsPath := fs.String("edits", "", "Edit script to apply before highlighting")
	timeout := fs.Duration("timeout", 30*time.Second, "Parse deadline")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: weft highlight [options] <file>")
		return 2
	}
	path := fs.Arg(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *engineName != "" {
		cfg.Highlight.Engine = *engineName
	}
	if *grammarDir != "" {
		cfg.Highlight.GrammarDir = *grammarDir
	}
	eng, err := cfg.Highlight.ParserEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	lang := *language
	if lang == "" {
		lang = resolveLanguage(cfg, path)
	}
	if lang == "" {
		fmt.Fprintf(os.Stderr, "Error: no language for %s; pass -language\n", path)
		return 1
	}

	registry := highlight.NewRegistry(highlight.WithEngine(eng))
	defer registry.Close()
	if err := registry.LoadDir(cfg.Highlight.GrammarDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ed := engine.New()
	defer ed.Shutdown(context.Background())

	buf, err := ed.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *editsPath != "" {
		if err := applyEditScript(buf, *editsPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	driver := highlight.New(registry,
		highlight.WithInjectionDepth(cfg.Highlight.InjectionDepth))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	defer driver.Shutdown(context.Background())

	if err := driver.Open(buf.ID(), lang, buf.Source); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := driver.Wait(ctx, buf.ID()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := driver.Err(buf.ID()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	spans, err := driver.Spans(buf.ID())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	out := renderSpans(path, lang, buf.Revision(), spans)
	os.Stdout.Write(out)
	fmt.Println()
	return 0
}

func resolveLanguage(cfg *config.Config, path string) string {
	if lang, ok := cfg.LanguageFor(path); ok {
		return cfg.Languages[lang].GrammarName(lang)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if lang, ok := builtinLanguages[ext]; ok {
		return lang
	}
	return ext
}

// renderSpans serializes the capture stream.
func renderSpans(file, lang string, revision uint64, spans []parser.Span) []byte {
	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "file", file)
	out, _ = sjson.SetBytes(out, "language", lang)
	out, _ = sjson.SetBytes(out, "revision", revision)
	out, _ = sjson.SetRawBytes(out, "spans", []byte(`[]`))
	for i, sp := range spans {
		p := "spans." + strconv.Itoa(i)
		out, _ = sjson.SetBytes(out, p+".rule", sp.Rule)
		out, _ = sjson.SetBytes(out, p+".start", sp.Start)
		out, _ = sjson.SetBytes(out, p+".end", sp.End)
		if sp.HighlightTag != "" {
			out, _ = sjson.SetBytes(out, p+".tag", sp.HighlightTag)
		}
		if sp.InjectionLanguage != "" {
			out, _ = sjson.SetBytes(out, p+".injection", sp.InjectionLanguage)
		}
		if sp.Completion {
			out, _ = sjson.SetBytes(out, p+".completion", true)
		}
	}
	return out
}

// edit is one line of an edit script.
type edit struct {
	op         string
	start, end int64
	text       string
}

// parseEdits reads an edit script. Each line is one of
//
//	insert <pos> <text>
//	delete <start> <end>
//	replace <start> <end> <text>
//
// Text runs to the end of the line; \n, \t and \\ escapes are decoded.
// Blank lines and lines starting with # are skipped.
func parseEdits(r io.Reader) ([]edit, error) {
	var edits []edit
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.SplitN(line, " ", 2)
		op := fields[0]
		rest := ""
		if len(fields) == 2 {
			rest = fields[1]
		}

		var e edit
		e.op = op
		var err error
		switch op {
		case "insert":
			pos, text, ok := strings.Cut(rest, " ")
			if !ok {
				return nil, fmt.Errorf("edit line %d: insert needs a position and text", lineNo)
			}
			e.start, err = strconv.ParseInt(pos, 10, 64)
			e.text = unescapeEditText(text)
		case "delete":
			e.start, e.end, err = parseRange(rest)
		case "replace":
			var span string
			span, e.text = splitReplace(rest)
			e.text = unescapeEditText(e.text)
			e.start, e.end, err = parseRange(span)
		default:
			return nil, fmt.Errorf("edit line %d: unknown operation %q", lineNo, op)
		}
		if err != nil {
			return nil, fmt.Errorf("edit line %d: %v", lineNo, err)
		}
		edits = append(edits, e)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return edits, nil
}

func parseRange(s string) (int64, int64, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), " ")
	if !ok {
		return 0, 0, fmt.Errorf("need a start and an end")
	}
	start, err := strconv.ParseInt(lo, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	end, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// splitReplace separates "start end text" into the range part and the
// text part.
func splitReplace(s string) (span, text string) {
	first := strings.Index(s, " ")
	if first < 0 {
		return s, ""
	}
	second := strings.Index(s[first+1:], " ")
	if second < 0 {
		return s, ""
	}
	cut := first + 1 + second
	return s[:cut], s[cut+1:]
}

func unescapeEditText(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte('\\')
				sb.WriteByte(s[i])
			}
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func applyEditScript(buf *engine.Buffer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	edits, err := parseEdits(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range edits {
		switch e.op {
		case "insert":
			_, err = buf.Insert(e.start, []byte(e.text))
		case "delete":
			_, err = buf.Delete(e.start, e.end)
		case "replace":
			_, err = buf.Replace(e.start, e.end, []byte(e.text))
		}
		if err != nil {
			return fmt.Errorf("%s: %s: %w", path, e.op, err)
		}
	}
	return nil
}
