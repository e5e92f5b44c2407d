package terminal

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/termdock/internal/infrastructure/notify"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	readBufferSize = 32 * 1024

	// drainTimeout bounds how long exit delivery waits for trailing output
	// after the process has exited. Background jobs holding the terminal
	// open would otherwise delay the exit forever.
	drainTimeout = 250 * time.Millisecond

	spawnFailedNotice = "termdock: unable to start the terminal, check the logs"
)

// Request is one spawn request. Empty fields fall back to platform defaults.
type Request struct {
	Shell string
	Args  []string
	Env   map[string]string
	Dir   string
	Cols  int
	Rows  int
}

// Options configures a Backend. Zero values select production defaults.
type Options struct {
	Spawner  Spawner
	Fs       afero.Fs
	Logger   *zap.Logger
	Metrics  *monitoring.Metrics
	Notifier notify.Notifier

	GOOS    string
	Getenv  func(string) string
	Environ func() []string
	HomeDir func() (string, error)
	Getwd   func() (string, error)
}

func (o *Options) setDefaults() {
	if o.Spawner == nil {
		o.Spawner = PTYSpawner{}
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Notifier == nil {
		o.Notifier = notify.Nop{}
	}
	if o.GOOS == "" {
		o.GOOS = runtime.GOOS
	}
	if o.Getenv == nil {
		o.Getenv = os.Getenv
	}
	if o.Environ == nil {
		o.Environ = os.Environ
	}
	if o.HomeDir == nil {
		o.HomeDir = os.UserHomeDir
	}
	if o.Getwd == nil {
		o.Getwd = os.Getwd
	}
}

// Backend owns at most one shell process at a time.
type Backend struct {
	opts Options

	mu  sync.Mutex
	cur *run
}

// run is the state of one successful spawn.
type run struct {
	proc     Process
	sub      *Subscription
	cmd      Command
	exitOnce sync.Once
	readDone chan struct{}
}

// NewBackend creates a backend.
func NewBackend(opts Options) *Backend {
	opts.setDefaults()
	return &Backend{opts: opts}
}

// Spawn starts a shell and streams its output and exit through sub.
//
// Failures never escape as panics: a diagnostic line is written to sub and
// sub receives exit code 1. The returned error is informational and wraps
// ErrSpawnFailed.
func (b *Backend) Spawn(ctx context.Context, req Request, sub *Subscription) error {
	b.Kill()

	log := b.opts.Logger
	shell := strings.TrimSpace(req.Shell)
	if shell == "" {
		shell = DefaultShell(b.opts.GOOS, b.opts.Getenv)
	}

	dir := b.resolveDir(req.Dir, sub)

	args := req.Args
	if len(args) == 0 {
		args = DefaultArgs(shell)
	}

	cmd := Command{
		Path: shell,
		Args: args,
		Dir:  dir,
		Env:  BuildEnv(b.opts.Environ(), req.Env),
		Cols: req.Cols,
		Rows: req.Rows,
	}

	proc, err := b.opts.Spawner.Start(ctx, cmd)
	if err != nil {
		log.Error("shell spawn failed",
			zap.String("shell", shell),
			zap.String("cwd", dir),
			zap.Error(err))
		b.opts.Metrics.RecordSpawn("error")
		b.opts.Notifier.Notify(spawnFailedNotice)
		sub.Data([]byte(fmt.Sprintf("\r\n[x] failed to start shell: %v\r\n", err)))
		sub.Exit(1)
		return fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	r := &run{
		proc:     proc,
		sub:      sub,
		cmd:      cmd,
		readDone: make(chan struct{}),
	}

	b.mu.Lock()
	b.cur = r
	b.mu.Unlock()

	b.opts.Metrics.RecordSpawn("ok")
	log.Info("shell spawned",
		zap.String("shell", shell),
		zap.Strings("args", args),
		zap.String("cwd", dir),
		zap.Int("pid", proc.Pid()))

	go b.readOutput(r)
	go b.monitorProcess(r)

	return nil
}

// resolveDir validates the requested directory, falling back to the home
// directory and then the process directory.
func (b *Backend) resolveDir(requested string, sub *Subscription) string {
	dir := strings.TrimSpace(requested)
	if dir == "" {
		if home, err := b.opts.HomeDir(); err == nil && home != "" {
			return home
		}
		wd, _ := b.opts.Getwd()
		return wd
	}

	if ok, err := afero.DirExists(b.opts.Fs, dir); err == nil && ok {
		return dir
	}

	fallback, err := b.opts.HomeDir()
	if err != nil || fallback == "" {
		fallback, _ = b.opts.Getwd()
	}
	b.opts.Logger.Warn("working directory not found",
		zap.String("cwd", dir),
		zap.String("fallback", fallback))
	sub.Data([]byte(fmt.Sprintf("\r\n[!] working directory not found, falling back to: %s\r\n", fallback)))
	return fallback
}

// readOutput forwards process output in order until the terminal closes.
// Delivery is synchronous so a slow consumer throttles the shell through
// the kernel buffer.
func (b *Backend) readOutput(r *run) {
	defer close(r.readDone)

	buf := make([]byte, readBufferSize)
	for {
		n, err := r.proc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			b.opts.Metrics.AddOutputBytes(n)
			r.sub.Data(chunk)
		}
		if err != nil {
			return
		}
	}
}

// monitorProcess waits for the process to exit and delivers its code.
func (b *Backend) monitorProcess(r *run) {
	code, err := r.proc.Wait()
	if err != nil {
		b.opts.Logger.Debug("wait failed", zap.Error(err))
	}

	select {
	case <-r.readDone:
	case <-time.After(drainTimeout):
	}
	_ = r.proc.Close()

	b.finish(r, code)
}

// finish delivers the exit of r exactly once.
func (b *Backend) finish(r *run, code int) {
	r.exitOnce.Do(func() {
		b.mu.Lock()
		if b.cur == r {
			b.cur = nil
		}
		b.mu.Unlock()

		b.opts.Metrics.RecordExit(code)
		b.opts.Logger.Info("shell exited",
			zap.Int("pid", r.proc.Pid()),
			zap.Int("code", code))
		r.sub.Exit(code)
	})
}

// Write forwards data to the shell. It is a no-op returning ErrNotRunning
// when no process is live.
func (b *Backend) Write(data []byte) error {
	r := b.current()
	if r == nil {
		return ErrNotRunning
	}
	_, err := r.proc.Write(data)
	return err
}

// Resize updates the terminal window size. Errors are logged and dropped.
func (b *Backend) Resize(cols, rows int) {
	r := b.current()
	if r == nil {
		return
	}
	if err := r.proc.Resize(cols, rows); err != nil {
		b.opts.Logger.Debug("resize failed",
			zap.Int("cols", cols),
			zap.Int("rows", rows),
			zap.Error(err))
		return
	}
	b.mu.Lock()
	r.cmd.Cols, r.cmd.Rows = cols, rows
	b.mu.Unlock()
}

// Kill terminates the live process and clears the handle. Idempotent.
func (b *Backend) Kill() {
	b.mu.Lock()
	r := b.cur
	b.cur = nil
	b.mu.Unlock()

	if r == nil {
		return
	}
	if err := r.proc.Kill(); err != nil {
		b.opts.Logger.Debug("kill failed", zap.Int("pid", r.proc.Pid()), zap.Error(err))
	}
}

// Pid returns the live process id, or 0.
func (b *Backend) Pid() int {
	r := b.current()
	if r == nil {
		return 0
	}
	return r.proc.Pid()
}

// Running reports whether a process is live.
func (b *Backend) Running() bool {
	return b.current() != nil
}

// Info describes the live process.
type Info struct {
	Pid   int      `json:"pid"`
	Shell string   `json:"shell"`
	Args  []string `json:"args"`
	Dir   string   `json:"cwd"`
	Cols  int      `json:"cols"`
	Rows  int      `json:"rows"`
}

// Info returns the live process description and whether one exists.
func (b *Backend) Info() (Info, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return Info{}, false
	}
	c := b.cur.cmd
	return Info{
		Pid:   b.cur.proc.Pid(),
		Shell: c.Path,
		Args:  append([]string(nil), c.Args...),
		Dir:   c.Dir,
		Cols:  c.Cols,
		Rows:  c.Rows,
	}, true
}

func (b *Backend) current() *run {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}
