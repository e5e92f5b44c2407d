package terminal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// Command describes one shell launch.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
	Cols int
	Rows int
}

// Process is a running shell attached to a pseudo-terminal.
type Process interface {
	// Read returns shell output. It returns an error once the terminal
	// side has been closed.
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Resize(cols, rows int) error
	Kill() error
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	Close() error
	Pid() int
}

// Spawner starts shell processes.
type Spawner interface {
	Start(ctx context.Context, cmd Command) (Process, error)
}

// PTYSpawner starts processes on a real pseudo-terminal.
type PTYSpawner struct{}

// Start implements Spawner.
func (PTYSpawner) Start(ctx context.Context, c Command) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env

	ptmx, err := pty.StartWithSize(cmd, winsize(c.Cols, c.Rows))
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	return &ptyProcess{cmd: cmd, ptmx: ptmx}, nil
}

type ptyProcess struct {
	cmd       *exec.Cmd
	ptmx      *os.File
	closeOnce sync.Once
}

func (p *ptyProcess) Read(b []byte) (int, error)  { return p.ptmx.Read(b) }
func (p *ptyProcess) Write(b []byte) (int, error) { return p.ptmx.Write(b) }

func (p *ptyProcess) Resize(cols, rows int) error {
	return pty.Setsize(p.ptmx, winsize(cols, rows))
}

func (p *ptyProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *ptyProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if p.cmd.ProcessState != nil {
		return p.cmd.ProcessState.ExitCode(), nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *ptyProcess) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.ptmx.Close() })
	return err
}

func (p *ptyProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func winsize(cols, rows int) *pty.Winsize {
	return &pty.Winsize{
		Cols: clampDim(cols),
		Rows: clampDim(rows),
	}
}

func clampDim(v int) uint16 {
	switch {
	case v < 1:
		return 1
	case v > 0xFFFF:
		return 0xFFFF
	}
	return uint16(v)
}
