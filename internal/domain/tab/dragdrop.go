package tab

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
)

// EscapePath quotes a path for the platform shell.
func EscapePath(goos, p string) string {
	if goos == "windows" {
		if strings.ContainsAny(p, " &^") {
			return `"` + p + `"`
		}
		return p
	}
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}

// EscapePaths escapes and space-joins paths.
func EscapePaths(goos string, paths []string) string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		out = append(out, EscapePath(goos, p))
	}
	return strings.Join(out, " ")
}

// ParseDragPayload extracts the path or name from an internal drag
// payload: either a <scheme>://open?...&file=<path> URI or the bare
// name or path.
func ParseDragPayload(scheme, data string) string {
	data = strings.TrimSpace(data)
	if scheme != "" && strings.HasPrefix(data, scheme+"://") {
		if u, err := url.Parse(data); err == nil {
			if f := u.Query().Get("file"); f != "" {
				return f
			}
		}
	}
	return data
}

// findDropped looks up a dragged path or name: literal path, path with the
// default extension, then a name search.
func findDropped(ctx context.Context, store contentstore.Store, nameOrPath string) (contentstore.Entry, error) {
	for _, candidate := range []string{nameOrPath, nameOrPath + contentstore.DefaultExtension} {
		if e, err := store.Resolve(ctx, candidate); err == nil {
			return e, nil
		}
	}
	e, err := store.FindByName(ctx, nameOrPath)
	if err != nil {
		return contentstore.Entry{}, fmt.Errorf("dropped item %q: %w", nameOrPath, err)
	}
	return e, nil
}
