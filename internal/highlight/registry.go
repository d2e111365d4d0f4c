package highlight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/weft/internal/parser"
)

// GrammarExt is the file extension grammar files load from.
const GrammarExt = ".peg"

// Registry maps language names to compiled grammars. Grammars load
// from a directory of .peg files, with optional hot reload on change.
type Registry struct {
	engine  parser.Engine
	onError func(error)

	mu       sync.RWMutex
	grammars map[string]*parser.Parser
	closed   bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithEngine selects the execution engine for loaded grammars.
func WithEngine(e parser.Engine) RegistryOption {
	return func(r *Registry) { r.engine = e }
}

// WithReloadErrorHandler receives compile errors from hot reloads.
// Without a handler a broken grammar file keeps the previous grammar
// and the error is dropped.
func WithReloadErrorHandler(fn func(error)) RegistryOption {
	return func(r *Registry) { r.onError = fn }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{grammars: make(map[string]*parser.Parser)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Put registers a compiled grammar under a language name.
func (r *Registry) Put(language string, p *parser.Parser) {
	p.SetEngine(r.engine)
	r.mu.Lock()
	r.grammars[language] = p
	r.mu.Unlock()
}

// Get returns the grammar registered for a language.
func (r *Registry) Get(language string) (*parser.Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.grammars[language]
	return p, ok
}

// Languages returns the registered language names.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.grammars))
	for name := range r.grammars {
		names = append(names, name)
	}
	return names
}

// LoadFile compiles one grammar file. The language name is the file's
// base name without extension.
func (r *Registry) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load grammar: %w", err)
	}
	defer f.Close()

	p, err := parser.New(f)
	if err != nil {
		return fmt.Errorf("load grammar %s: %w", filepath.Base(path), err)
	}
	r.Put(languageOf(path), p)
	return nil
}

// LoadDir compiles every grammar file in a directory. Broken files are
// reported joined; the rest still load.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("load grammars: %w", err)
	}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != GrammarExt {
			continue
		}
		if err := r.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func languageOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), GrammarExt)
}

// Watch hot-reloads grammar files in a directory. A changed file
// recompiles in place; a removed file unregisters its language.
func (r *Registry) Watch(dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	if r.watcher != nil {
		return r.watcher.Add(dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch grammars: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch grammars: %w", err)
	}
	r.watcher = watcher
	r.done = make(chan struct{})
	go r.watchLoop(watcher, r.done)
	return nil
}

func (r *Registry) watchLoop(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(ev.Name) != GrammarExt {
				continue
			}
			switch {
			case ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create):
				if err := r.LoadFile(ev.Name); err != nil && r.onError != nil {
					r.onError(err)
				}
			case ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename):
				r.mu.Lock()
				delete(r.grammars, languageOf(ev.Name))
				r.mu.Unlock()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if r.onError != nil {
				r.onError(err)
			}
		}
	}
}

// Close stops watching. Registered grammars stay usable.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	watcher, done := r.watcher, r.done
	r.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}
