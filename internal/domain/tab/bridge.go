package tab

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"go.uber.org/zap"
)

// OutputMarker marks where appended terminal output goes in an entry.
const OutputMarker = "<!-- terminal-output -->"

// CodeBlock wraps text in a fenced code block.
func CodeBlock(text string) string {
	return "```\n" + strings.TrimSpace(text) + "\n```"
}

// InsertOutput places block after the first OutputMarker, or at the end of
// content when there is none.
func InsertOutput(content, block string) string {
	if i := strings.Index(content, OutputMarker); i >= 0 {
		at := i + len(OutputMarker)
		return content[:at] + "\n" + block + "\n" + content[at:]
	}
	return content + "\n" + block + "\n"
}

// SendToNewEntry writes text, or the selection when text is empty, into a
// new content-store entry and opens it.
func (s *Session) SendToNewEntry(ctx context.Context, text string) (contentstore.Entry, error) {
	if text == "" {
		text = s.Selection()
	}
	if text == "" {
		s.deps.Notifier.Notify("No content selected")
		return contentstore.Entry{}, ErrNoSelection
	}
	if s.deps.Store == nil {
		return contentstore.Entry{}, ErrNoStore
	}

	name := fmt.Sprintf("Terminal Output %d%s", s.deps.Now().UnixMilli(), contentstore.DefaultExtension)
	e, err := s.deps.Store.Create(ctx, name, []byte(CodeBlock(text)))
	if err != nil {
		return contentstore.Entry{}, fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := s.deps.Store.Open(ctx, e, nil); err != nil {
		s.logger.Warn("failed to open new entry", zap.String("path", e.Path), zap.Error(err))
	}
	s.deps.Notifier.Notify("Created: " + name)
	return e, nil
}

// SendSelectionToNewEntry is SendToNewEntry for the current selection.
func (s *Session) SendSelectionToNewEntry(ctx context.Context) (contentstore.Entry, error) {
	return s.SendToNewEntry(ctx, "")
}

// AppendSelectionToEntry inserts the selection as a code block into an
// existing entry, after its output marker when present.
func (s *Session) AppendSelectionToEntry(ctx context.Context, path string) error {
	text := s.Selection()
	if text == "" {
		s.deps.Notifier.Notify("No content selected")
		return ErrNoSelection
	}
	if s.deps.Store == nil {
		return ErrNoStore
	}

	e, err := s.deps.Store.Resolve(ctx, path)
	if err != nil {
		return err
	}
	content, err := s.deps.Store.Read(ctx, e.Path)
	if err != nil {
		return err
	}
	updated := InsertOutput(string(content), CodeBlock(text))
	if err := s.deps.Store.Write(ctx, e.Path, []byte(updated)); err != nil {
		return fmt.Errorf("failed to update %s: %w", e.Path, err)
	}
	return s.deps.Store.Open(ctx, e, nil)
}
