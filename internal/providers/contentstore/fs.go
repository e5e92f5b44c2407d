package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FS is a directory-backed Store.
type FS struct {
	root     string
	base     afero.Fs
	osBacked bool
	viewer   Viewer
	logger   *zap.Logger
}

// Option configures an FS.
type Option func(*FS)

// WithFs replaces the OS filesystem. The store is still rooted at root
// inside fsys.
func WithFs(fsys afero.Fs) Option {
	return func(s *FS) {
		s.base = afero.NewBasePathFs(fsys, s.root)
		_, s.osBacked = fsys.(*afero.OsFs)
	}
}

// WithViewer sets where Open and OpenLinkText are delivered.
func WithViewer(v Viewer) Option {
	return func(s *FS) { s.viewer = v }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *FS) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewFS creates a store rooted at root.
func NewFS(root string, opts ...Option) *FS {
	root = filepath.Clean(root)
	s := &FS{
		root:     root,
		base:     afero.NewBasePathFs(afero.NewOsFs(), root),
		osBacked: true,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root implements Store.
func (s *FS) Root() string { return s.root }

// AbsPath implements Store.
func (s *FS) AbsPath(p string) string {
	rel, err := s.rel(p)
	if err != nil {
		return p
	}
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// rel converts p into a clean store-relative slash path.
func (s *FS) rel(p string) (string, error) {
	if p == "" {
		return "", ErrNotFound
	}
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(s.root, p)
		if err != nil {
			return "", ErrOutsideRoot
		}
		p = r
	}
	c := path.Clean(filepath.ToSlash(p))
	if c == ".." || strings.HasPrefix(c, "../") || path.IsAbs(c) {
		return "", ErrOutsideRoot
	}
	if c == "." {
		return "", nil
	}
	return c, nil
}

// Resolve implements Store.
func (s *FS) Resolve(ctx context.Context, p string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	rel, err := s.rel(p)
	if err != nil {
		return Entry{}, err
	}
	info, err := s.base.Stat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return Entry{}, err
	}
	return s.entry(rel, info), nil
}

func (s *FS) entry(rel string, info fs.FileInfo) Entry {
	e := Entry{
		Path:  rel,
		Name:  path.Base(rel),
		IsDir: info.IsDir(),
		Size:  info.Size(),
	}
	if !e.IsDir {
		e.MimeType = s.detectMime(rel)
	}
	return e
}

func (s *FS) detectMime(rel string) string {
	f, err := s.base.Open(rel)
	if err != nil {
		return ""
	}
	defer f.Close()
	m, err := mimetype.DetectReader(f)
	if err != nil {
		return ""
	}
	return m.String()
}

// FindByName implements Store. Shorter paths win, then lexical order.
func (s *FS) FindByName(ctx context.Context, name string) (Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Entry{}, ErrNotFound
	}
	if strings.Contains(name, "/") {
		for _, candidate := range []string{name, name + DefaultExtension} {
			if e, err := s.Resolve(ctx, candidate); err == nil && !e.IsDir {
				return e, nil
			}
		}
	}

	want := path.Base(name)
	all, err := s.List(ctx, "")
	if err != nil {
		return Entry{}, err
	}

	var best *Entry
	for i := range all {
		e := &all[i]
		stem := strings.TrimSuffix(e.Name, path.Ext(e.Name))
		if e.Name != want && stem != want {
			continue
		}
		if best == nil || len(e.Path) < len(best.Path) || (len(e.Path) == len(best.Path) && e.Path < best.Path) {
			best = e
		}
	}
	if best == nil {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.Resolve(ctx, best.Path)
}

// Create implements Store. It fails when the entry already exists.
func (s *FS) Create(ctx context.Context, p string, content []byte) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	rel, err := s.rel(p)
	if err != nil {
		return Entry{}, err
	}
	if dir := path.Dir(rel); dir != "." {
		if err := s.base.MkdirAll(dir, 0o755); err != nil {
			return Entry{}, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := s.base.OpenFile(rel, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create entry: %w", err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return Entry{}, fmt.Errorf("failed to write entry: %w", err)
	}
	if err := f.Close(); err != nil {
		return Entry{}, err
	}

	s.logger.Debug("entry created", zap.String("path", rel), zap.Int("bytes", len(content)))
	return s.Resolve(ctx, rel)
}

// Read implements Store.
func (s *FS) Read(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rel, err := s.rel(p)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.base, rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return data, err
}

// Write implements Store. Existing content is replaced.
func (s *FS) Write(ctx context.Context, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rel, err := s.rel(p)
	if err != nil {
		return err
	}
	return afero.WriteFile(s.base, rel, content, 0o644)
}

// List implements Store. Results are sorted by path.
func (s *FS) List(ctx context.Context, pattern string) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	switch {
	case pattern != "":
		entries, err = s.glob(ctx, pattern)
	case s.osBacked:
		entries, err = s.fastWalk(ctx)
	default:
		entries, err = s.aferoWalk(ctx)
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (s *FS) glob(ctx context.Context, pattern string) ([]Entry, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern: %s", pattern)
	}
	var entries []Entry
	err := doublestar.GlobWalk(afero.NewIOFS(s.base), pattern, func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, Entry{Path: p, Name: path.Base(p), Size: info.Size()})
		return nil
	})
	return entries, err
}

// fastWalk lists files with fastwalk. Callbacks run concurrently.
func (s *FS) fastWalk(ctx context.Context) ([]Entry, error) {
	var (
		mu      sync.Mutex
		entries []Entry
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, s.root, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		mu.Lock()
		entries = append(entries, Entry{Path: rel, Name: path.Base(rel), Size: info.Size()})
		mu.Unlock()
		return nil
	})
	return entries, err
}

func (s *FS) aferoWalk(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	err := afero.Walk(s.base, "/", func(p string, info fs.FileInfo, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil || info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(filepath.ToSlash(p), "/")
		entries = append(entries, Entry{Path: rel, Name: path.Base(rel), Size: info.Size()})
		return nil
	})
	return entries, err
}

// Open implements Store.
func (s *FS) Open(ctx context.Context, e Entry, cursor *Cursor) error {
	if s.viewer == nil {
		s.logger.Debug("no viewer, open dropped", zap.String("path", e.Path))
		return nil
	}
	return s.viewer.ShowEntry(ctx, s.AbsPath(e.Path), e, cursor)
}

// OpenLinkText implements Store.
func (s *FS) OpenLinkText(ctx context.Context, text string) error {
	if s.viewer == nil {
		s.logger.Debug("no viewer, link text dropped", zap.String("text", text))
		return nil
	}
	return s.viewer.ShowLinkText(ctx, text)
}
