// Package settings loads user preferences for terminal sessions from a
// YAML, TOML or JSON file and reloads them when the file changes.
package settings
