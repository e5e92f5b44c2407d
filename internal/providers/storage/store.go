package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// ErrUnsupportedVersion is returned for snapshots with an unknown schema.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Store persists the session layout in a single JSON file.
//
// The snapshot on disk is read at most once per Store through Consume.
// Saves are fire-and-forget: writes run on a background goroutine, and
// saves queued while a write is in flight collapse into the latest one.
type Store struct {
	path    string
	fs      afero.Fs
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu       sync.Mutex
	consumed bool
	pending  *types.SessionSetSnapshot
	writing  bool
	idle     chan struct{}
	lastErr  error
	closed   bool
}

// NewStore creates a store for the file at path. A nil fs uses the OS
// filesystem.
func NewStore(path string, fsys afero.Fs, logger *zap.Logger, metrics *monitoring.Metrics) *Store {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{path: path, fs: fsys, logger: logger, metrics: metrics}
}

// Path returns the snapshot file path.
func (s *Store) Path() string { return s.path }

// Load reads and validates the snapshot file.
func (s *Store) Load() (types.SessionSetSnapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return types.SessionSetSnapshot{}, err
	}
	return Decode(data)
}

// Consume returns the persisted snapshot the first time it is called and
// nothing afterwards. Missing, unreadable or invalid files count as
// nothing to restore.
func (s *Store) Consume() (types.SessionSetSnapshot, bool) {
	s.mu.Lock()
	if s.consumed {
		s.mu.Unlock()
		return types.SessionSetSnapshot{}, false
	}
	s.consumed = true
	s.mu.Unlock()

	snap, err := s.Load()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("ignoring persisted sessions", zap.String("path", s.path), zap.Error(err))
		}
		return types.SessionSetSnapshot{}, false
	}
	return snap, true
}

// Save queues snap for writing and returns immediately.
func (s *Store) Save(snap types.SessionSetSnapshot) {
	snap.Version = types.SnapshotVersion
	snap.Tabs = append([]types.SessionSnapshot(nil), snap.Tabs...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.pending = &snap
	if s.writing {
		return
	}
	s.writing = true
	s.idle = make(chan struct{})
	go s.drain()
}

func (s *Store) drain() {
	for {
		s.mu.Lock()
		snap := s.pending
		s.pending = nil
		if snap == nil {
			s.writing = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		err := s.write(*snap)
		if err != nil {
			s.logger.Warn("failed to persist sessions", zap.String("path", s.path), zap.Error(err))
		} else {
			s.metrics.IncSessionsSaved()
		}

		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
	}
}

// write replaces the file through a temporary sibling and a rename.
func (s *Store) write(snap types.SessionSetSnapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Flush waits for queued writes and returns the result of the last one.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.writing {
		err := s.lastErr
		s.mu.Unlock()
		return err
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Clear removes the snapshot file.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil && ctx.Err() != nil {
		return err
	}
	err := s.fs.Remove(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Close flushes pending writes and rejects later saves.
func (s *Store) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

// Encode serializes a snapshot.
func Encode(snap types.SessionSetSnapshot) ([]byte, error) {
	if snap.Tabs == nil {
		snap.Tabs = []types.SessionSnapshot{}
	}
	data, err := sonic.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Decode parses and validates a snapshot.
func Decode(data []byte) (types.SessionSetSnapshot, error) {
	var snap types.SessionSetSnapshot
	if err := sonic.Unmarshal(data, &snap); err != nil {
		return types.SessionSetSnapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != types.SnapshotVersion {
		return types.SessionSetSnapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, snap.Version)
	}
	return snap, nil
}
