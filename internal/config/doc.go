// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. User config file (~/.notesync/notesync.toml or OS-specific config directory)
// 3. Project config file (notesync.toml or .notesync.toml in the working directory)
// 4. Environment variables (NOTESYNC_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
//
// User-level config locations:
// - ~/.notesync/notesync.toml (preferred)
// - Windows: %APPDATA%\notesync\notesync.toml
// - macOS: ~/Library/Application Support/notesync/notesync.toml
// - Linux/BSD: $XDG_CONFIG_HOME/notesync/notesync.toml or ~/.config/notesync/notesync.toml
package config
