// Package storage persists the multiplexer's session layout between runs.
package storage
