package links

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
)

// ActionKind is what activating a link does.
type ActionKind string

const (
	ActionOpenExternal    ActionKind = "open-external"
	ActionOpenInternalURI ActionKind = "open-internal-uri"
	ActionOpenLinkText    ActionKind = "open-link-text"
	ActionOpenEntry       ActionKind = "open-entry"
	ActionOpenPath        ActionKind = "open-path"
)

// Action is a resolved link.
type Action struct {
	Kind   ActionKind           `json:"kind"`
	Target string               `json:"target"`
	Entry  *contentstore.Entry  `json:"entry,omitempty"`
	Cursor *contentstore.Cursor `json:"cursor,omitempty"`
}

// Resolver maps matches to actions against a content store.
type Resolver struct {
	store  contentstore.Store
	scheme string
}

// NewResolver creates a resolver. store may be nil, in which case nothing
// resolves to an entry.
func NewResolver(store contentstore.Store, scheme string) *Resolver {
	if scheme == "" {
		scheme = DefaultScheme
	}
	return &Resolver{store: store, scheme: scheme}
}

// Resolve maps m to an action. dir is the directory relative file paths
// are taken from; it may be empty.
func (r *Resolver) Resolve(ctx context.Context, m Match, dir string) Action {
	switch m.Kind {
	case KindURL:
		return Action{Kind: ActionOpenExternal, Target: m.Value}
	case KindEmail:
		return Action{Kind: ActionOpenExternal, Target: "mailto:" + m.Value}
	case KindInternal:
		return r.resolveInternal(ctx, m)
	default:
		return r.resolveFile(ctx, m, dir)
	}
}

func (r *Resolver) resolveInternal(ctx context.Context, m Match) Action {
	if strings.HasPrefix(m.Value, r.scheme+"://") {
		return Action{Kind: ActionOpenInternalURI, Target: m.Value}
	}
	if r.store != nil {
		if e, err := r.lookup(ctx, m.Value); err == nil {
			return Action{Kind: ActionOpenEntry, Target: e.Path, Entry: &e}
		}
		if e, err := r.store.FindByName(ctx, m.Value); err == nil {
			return Action{Kind: ActionOpenEntry, Target: e.Path, Entry: &e}
		}
	}
	return Action{Kind: ActionOpenLinkText, Target: m.Value}
}

func (r *Resolver) resolveFile(ctx context.Context, m Match, dir string) Action {
	target := m.Value
	if dir != "" && !isAbs(target) {
		target = filepath.Join(dir, target)
	}

	if r.store != nil {
		if e, ok := r.findEntry(ctx, m.Value, target); ok {
			a := Action{Kind: ActionOpenEntry, Target: e.Path, Entry: &e}
			if m.HasPosition() {
				a.Cursor = &contentstore.Cursor{
					Line:   m.Line - 1,
					Column: max(m.Column, 1) - 1,
				}
			}
			return a
		}
	}
	return Action{Kind: ActionOpenPath, Target: target}
}

// findEntry tries the literal path, then with the default extension, then
// the path joined with dir, then a name-only search. The name search is
// skipped for absolute paths outside the store.
func (r *Resolver) findEntry(ctx context.Context, value, joined string) (contentstore.Entry, bool) {
	rel := r.stripRoot(value)
	if e, err := r.lookup(ctx, rel); err == nil {
		return e, true
	}
	if joined != value {
		if e, err := r.lookup(ctx, joined); err == nil {
			return e, true
		}
	}
	if isAbs(rel) {
		return contentstore.Entry{}, false
	}
	e, err := r.store.FindByName(ctx, baseName(rel))
	if err != nil || e.IsDir {
		return contentstore.Entry{}, false
	}
	return e, true
}

// lookup resolves p then p + DefaultExtension, files only.
func (r *Resolver) lookup(ctx context.Context, p string) (contentstore.Entry, error) {
	for _, candidate := range []string{p, p + contentstore.DefaultExtension} {
		e, err := r.store.Resolve(ctx, candidate)
		if err == nil && !e.IsDir {
			return e, nil
		}
		if errors.Is(err, contentstore.ErrOutsideRoot) {
			return contentstore.Entry{}, err
		}
	}
	return contentstore.Entry{}, contentstore.ErrNotFound
}

// stripRoot removes the store root prefix and any leading separator.
func (r *Resolver) stripRoot(p string) string {
	root := r.store.Root()
	if root == "" || !strings.HasPrefix(p, root) {
		return p
	}
	rest := p[len(root):]
	if rest != "" && rest[0] != '/' && rest[0] != '\\' {
		return p
	}
	return strings.TrimLeft(rest, `/\`)
}

func isAbs(p string) bool {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return true
	}
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
