package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ReloadDebounce is how long the watcher waits for writes to settle.
const ReloadDebounce = 50 * time.Millisecond

// Provider loads, caches and saves the settings file.
type Provider struct {
	path   string
	format Format
	fs     afero.Fs
	logger *zap.Logger

	mu      sync.RWMutex
	current Settings
}

// NewProvider creates a provider for the file at path. A nil fs uses the
// OS filesystem.
func NewProvider(path string, fsys afero.Fs, logger *zap.Logger) (*Provider, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		path:    path,
		format:  format,
		fs:      fsys,
		logger:  logger,
		current: Default(),
	}, nil
}

// Path returns the settings file path.
func (p *Provider) Path() string { return p.path }

// Get returns the cached settings.
func (p *Provider) Get() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Load reads the file. A missing file yields the defaults.
func (p *Provider) Load() (Settings, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if errors.Is(err, fs.ErrNotExist) {
		s := Default()
		p.set(s)
		return s, nil
	}
	if err != nil {
		return p.Get(), fmt.Errorf("failed to read settings: %w", err)
	}

	s, err := Decode(p.format, data)
	if err != nil {
		return p.Get(), err
	}
	p.set(s)
	return s, nil
}

// Save normalizes s, writes it and updates the cache.
func (p *Provider) Save(s Settings) error {
	s = s.Normalize()
	data, err := Encode(p.format, s)
	if err != nil {
		return err
	}
	if err := p.fs.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := afero.WriteFile(p.fs, p.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	p.set(s)
	return nil
}

func (p *Provider) set(s Settings) {
	p.mu.Lock()
	p.current = s
	p.mu.Unlock()
}

// Watch reloads the file when it changes on disk and calls onChange with
// the new settings. It blocks until ctx is done. Decode failures are
// logged and the previous settings are kept.
func (p *Provider) Watch(ctx context.Context, onChange func(Settings)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	target := filepath.Clean(p.path)

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(ReloadDebounce)

		case <-debounce.C:
			s, err := p.Load()
			if err != nil {
				p.logger.Warn("settings reload failed", zap.String("path", p.path), zap.Error(err))
				continue
			}
			p.logger.Info("settings reloaded", zap.String("path", p.path))
			if onChange != nil {
				onChange(s)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			p.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}
