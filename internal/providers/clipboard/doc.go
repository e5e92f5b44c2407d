// Package clipboard provides the clipboard writers sessions copy selections
// into: OSC 52 for a local terminal, an in-memory history, and adapters for
// remote panels.
package clipboard
