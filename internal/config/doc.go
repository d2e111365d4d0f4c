// Package config loads and watches the editor core configuration.
//
// Configuration lives in a single TOML file. Defaults are applied
// first, the file overrides them, and WEFT_* environment variables
// override the file. A watcher can reload the file on change and hand
// the new configuration to a callback.
package config
