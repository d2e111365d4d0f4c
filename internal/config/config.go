package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/weft/internal/parser"
)

// Config is the editor core configuration.
type Config struct {
	Editor    Editor              `toml:"editor"`
	Highlight Highlight           `toml:"highlight"`
	Languages map[string]Language `toml:"languages"`
}

// Editor holds buffer-level settings.
type Editor struct {
	// LargeFileThreshold is a file size in bytes, loaded from
	// configuration. No component reads it: files open writable
	// whatever their size.
	LargeFileThreshold int64 `toml:"large_file_threshold"`
}

// Highlight holds parsing and highlighting settings.
type Highlight struct {
	// Engine selects the parse engine, "interpreter" or "compiled".
	Engine string `toml:"engine"`

	// InjectionDepth bounds nested language injection.
	InjectionDepth int `toml:"injection_depth"`

	// GrammarDir is the directory of .peg grammar files.
	GrammarDir string `toml:"grammar_dir"`

	// MaxParsers is a count of concurrent background parses, loaded
	// from configuration. No component reads it; the highlight driver
	// bounds its private executor at four parses.
	MaxParsers int `toml:"max_parsers"`
}

// Language maps file names to a grammar.
type Language struct {
	// Grammar is the registry name of the grammar, defaulting to the
	// language key.
	Grammar string `toml:"grammar"`

	// Extensions are file extensions, with or without the leading dot.
	Extensions []string `toml:"extensions"`

	// Filenames are exact base names, for files like Makefile.
	Filenames []string `toml:"filenames"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Editor: Editor{
			LargeFileThreshold: 64 << 20,
		},
		Highlight: Highlight{
			Engine:         "interpreter",
			InjectionDepth: 4,
			GrammarDir:     "grammars",
			MaxParsers:     4,
		},
		Languages: map[string]Language{},
	}
}

// Load reads the TOML file at path over the defaults and applies
// environment overrides. A missing file is not an error; the defaults
// stand.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, c); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// applyEnv overrides settings from WEFT_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("WEFT_ENGINE"); v != "" {
		c.Highlight.Engine = v
	}
	if v := os.Getenv("WEFT_GRAMMAR_DIR"); v != "" {
		c.Highlight.GrammarDir = v
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if _, err := c.Highlight.ParserEngine(); err != nil {
		return err
	}
	if c.Highlight.InjectionDepth < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidDepth, c.Highlight.InjectionDepth)
	}
	for name, lang := range c.Languages {
		if lang.Grammar == "" && name == "" {
			return ErrNoGrammar
		}
	}
	return nil
}

// ParserEngine resolves the configured engine name.
func (h Highlight) ParserEngine() (parser.Engine, error) {
	switch h.Engine {
	case "", "interpreter":
		return parser.EngineInterpreter, nil
	case "compiled":
		return parser.EngineCompiled, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownEngine, h.Engine)
	}
}

// GrammarName returns the registry name for a language entry.
func (l Language) GrammarName(key string) string {
	if l.Grammar != "" {
		return l.Grammar
	}
	return key
}

// LanguageFor resolves the language for a file path. Exact file names
// win over extensions.
func (c *Config) LanguageFor(path string) (string, bool) {
	base := filepath.Base(path)
	for name, lang := range c.Languages {
		for _, fn := range lang.Filenames {
			if fn == base {
				return name, true
			}
		}
	}

	ext := strings.TrimPrefix(filepath.Ext(base), ".")
	if ext == "" {
		return "", false
	}
	for name, lang := range c.Languages {
		for _, e := range lang.Extensions {
			if strings.TrimPrefix(e, ".") == ext {
				return name, true
			}
		}
	}
	return "", false
}
