package contentstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no entry matches.
	ErrNotFound = errors.New("contentstore: entry not found")
	// ErrOutsideRoot is returned for paths that escape the store root.
	ErrOutsideRoot = errors.New("contentstore: path outside root")
)

// DefaultExtension is tried when a lookup without extension misses.
const DefaultExtension = ".md"

// Entry is one file or directory of the store.
type Entry struct {
	// Path is store-relative and slash separated.
	Path     string `json:"path"`
	Name     string `json:"name"`
	IsDir    bool   `json:"isDir"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size"`
}

// Cursor is a 0-based editor position.
type Cursor struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Viewer displays entries in the host. The host adapter forwards these to
// the panel; the attach command opens entries with the OS default
// application.
type Viewer interface {
	ShowEntry(ctx context.Context, abs string, e Entry, cursor *Cursor) error
	ShowLinkText(ctx context.Context, text string) error
}

// Store is the host content store the engine resolves links against.
type Store interface {
	// Root is the absolute directory the store is rooted at.
	Root() string
	// Resolve looks up a store-relative or absolute path.
	Resolve(ctx context.Context, path string) (Entry, error)
	// FindByName searches the whole store for a file name, with or without
	// its extension.
	FindByName(ctx context.Context, name string) (Entry, error)
	Create(ctx context.Context, path string, content []byte) (Entry, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, content []byte) error
	// List returns file entries matching a doublestar pattern, or every
	// file for an empty pattern.
	List(ctx context.Context, pattern string) ([]Entry, error)
	// AbsPath maps a store-relative path to the filesystem.
	AbsPath(path string) string

	Open(ctx context.Context, e Entry, cursor *Cursor) error
	OpenLinkText(ctx context.Context, text string) error
}
