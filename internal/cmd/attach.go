package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/GriffinCanCode/termdock/internal/domain/links"
	"github.com/GriffinCanCode/termdock/internal/domain/multiplexer"
	"github.com/GriffinCanCode/termdock/internal/domain/surface"
	"github.com/GriffinCanCode/termdock/internal/domain/tab"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/config"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/logging"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/notify"
	"github.com/GriffinCanCode/termdock/internal/providers/clipboard"
	"github.com/GriffinCanCode/termdock/internal/providers/contentstore"
	"github.com/GriffinCanCode/termdock/internal/providers/settings"
	"github.com/GriffinCanCode/termdock/internal/providers/system"
	"github.com/GriffinCanCode/termdock/internal/providers/terminal"
)

const (
	// detachKey is Ctrl+].
	detachKey  = 0x1d
	pollPeriod = 200 * time.Millisecond
)

var errNotTerminal = errors.New("attach requires an interactive terminal")

type attachFlags struct {
	cwd string
}

func newAttachCmd(global *globalFlags) *cobra.Command {
	flags := &attachFlags{}

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Run a session on this terminal",
		Long: `Start a shell session and attach the current terminal to it. The
session uses the same settings, content store and link engine as served
sessions but is not part of the persisted layout.

Press Ctrl+] to detach. The command returns when the shell exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global)
			if err != nil {
				return err
			}
			return runAttach(cmd.Context(), cfg, flags, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().StringVar(&flags.cwd, "cwd", "", "working directory of the shell")
	return cmd
}

// localSurface renders a session on the controlling terminal. The
// headless mirror keeps line text and selection for links and copying.
type localSurface struct {
	*surface.Headless

	mu  sync.Mutex
	out io.Writer
}

// osViewer shows content store entries with the OS default application.
// There is no host view for bare link text, so it is only reported.
type osViewer struct {
	opener  links.Opener
	notices notify.Notifier
}

func (v osViewer) ShowEntry(ctx context.Context, abs string, _ contentstore.Entry, _ *contentstore.Cursor) error {
	return v.opener.OpenPath(ctx, abs)
}

func (v osViewer) ShowLinkText(_ context.Context, text string) error {
	v.notices.Notify("No entry for " + text)
	return nil
}

func newLocalSurface(cols, rows int, out io.Writer) *localSurface {
	return &localSurface{Headless: surface.NewHeadless(cols, rows), out: out}
}

// Write implements surface.Surface.
func (l *localSurface) Write(p []byte) {
	l.Headless.Write(p)
	l.emit(p)
}

// Reset implements surface.Surface.
func (l *localSurface) Reset() {
	l.Headless.Reset()
	l.emit([]byte("\x1bc"))
}

// Clear implements surface.Surface.
func (l *localSurface) Clear() {
	l.Headless.Clear()
	l.emit([]byte("\x1b[H\x1b[2J\x1b[3J"))
}

// Notify implements notify.Notifier.
func (l *localSurface) Notify(message string) {
	l.emit([]byte("\r\n[termdock] " + message + "\r\n"))
}

func (l *localSurface) emit(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(p)
}

// forward sends typed bytes to the shell. It reports whether the detach
// key was pressed; bytes after it are dropped.
func forward(surf *localSurface, chunk []byte) bool {
	i := bytes.IndexByte(chunk, detachKey)
	if i < 0 {
		surf.Input(string(chunk))
		return false
	}
	if i > 0 {
		surf.Input(string(chunk[:i]))
	}
	return true
}

func attachLogger(cfg *config.Config) *zap.Logger {
	dir := cfg.Terminal.ResolveStateDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zap.NewNop()
	}
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{filepath.Join(dir, "attach.log")},
	})
	if err != nil {
		return zap.NewNop()
	}
	return logger.Logger
}

func runAttach(ctx context.Context, cfg *config.Config, flags *attachFlags, in, out *os.File) error {
	inFd, outFd := int(in.Fd()), int(out.Fd())
	if !term.IsTerminal(inFd) {
		return errNotTerminal
	}
	cols, rows, err := term.GetSize(outFd)
	if err != nil {
		cols, rows = cfg.Terminal.DefaultCols, cfg.Terminal.DefaultRows
	}

	logger := attachLogger(cfg)
	defer func() { _ = logger.Sync() }()

	provider, err := settings.NewProvider(cfg.Terminal.SettingsPath(), nil, logger)
	if err != nil {
		return err
	}
	st, err := provider.Load()
	if err != nil {
		logger.Warn("Failed to load settings, using defaults", zap.Error(err))
	}

	surf := newLocalSurface(cols, rows, out)
	notices := notify.NewChannels(surf, notify.DefaultInterval, logger)

	opener := system.NewOpener(logger)
	var content contentstore.Store
	if root := cfg.Terminal.ContentRoot; root != "" {
		content = contentstore.NewFS(root,
			contentstore.WithViewer(osViewer{opener: opener, notices: notices.Info}),
			contentstore.WithLogger(logger),
		)
	}

	mux := multiplexer.New(multiplexer.Options{
		Deps: tab.Deps{
			Terminal: terminal.Options{
				Logger:   logger,
				Notifier: notices.Failures,
			},
			Store:     content,
			Clipboard: clipboard.NewOSC52(out, os.Getenv("TERM")),
			Notifier:  notices.Info,
			Failures:  notices.Failures,
			Links:     links.NewEngine(nil, links.WithLogger(logger)),
			Activator: links.NewActivator(links.NewResolver(content, ""), content, opener, logger, nil),
		},
		Settings:   st,
		NewSurface: func(int) surface.Surface { return surf },
		Logger:     logger,
	})
	defer mux.Dispose()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err := provider.Watch(ctx, mux.ApplySettings); err != nil {
			logger.Debug("settings watcher stopped", zap.Error(err))
		}
	}()

	session, err := mux.CreateSession(ctx, flags.cwd)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	oldState, err := term.MakeRaw(inFd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer func() { _ = term.Restore(inFd, oldState) }()

	input := make(chan []byte)
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := in.Read(buf)
			if n > 0 {
				select {
				case input <- append([]byte(nil), buf[:n]...):
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk := <-input:
			if forward(surf, chunk) {
				surf.emit([]byte("\r\n[detached]\r\n"))
				return nil
			}
		case <-ticker.C:
			if session.Exited() {
				return nil
			}
			if c, r, err := term.GetSize(outFd); err == nil {
				surf.Resize(c, r)
			}
		}
	}
}
