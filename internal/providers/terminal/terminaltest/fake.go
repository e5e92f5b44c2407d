// Package terminaltest provides an in-memory Spawner for tests.
package terminaltest

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/GriffinCanCode/termdock/internal/providers/terminal"
)

// Spawner records every command and hands out Process fakes.
type Spawner struct {
	// Err, when set, makes Start fail.
	Err error

	mu        sync.Mutex
	commands  []terminal.Command
	processes []*Process
	nextPid   int
}

// Start implements terminal.Spawner.
func (s *Spawner) Start(ctx context.Context, cmd terminal.Command) (terminal.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, cmd)
	if s.Err != nil {
		return nil, s.Err
	}
	s.nextPid++
	p := newProcess(1000+s.nextPid, cmd)
	s.processes = append(s.processes, p)
	return p, nil
}

// Commands returns every command passed to Start.
func (s *Spawner) Commands() []terminal.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]terminal.Command(nil), s.commands...)
}

// Processes returns every process started so far.
func (s *Spawner) Processes() []*Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Process(nil), s.processes...)
}

// Last returns the most recent process, or nil.
func (s *Spawner) Last() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.processes) == 0 {
		return nil
	}
	return s.processes[len(s.processes)-1]
}

// Live counts processes that have not exited.
func (s *Spawner) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.processes {
		if !p.Exited() {
			n++
		}
	}
	return n
}

// Process is a scripted shell. Output written with Emit is read by the
// backend; Exit ends the process with a code.
type Process struct {
	Cmd terminal.Command

	pid    int
	outR   *io.PipeReader
	outW   *io.PipeWriter
	exitCh chan int
	done   chan struct{}
	once   sync.Once

	mu     sync.Mutex
	input  bytes.Buffer
	cols   int
	rows   int
	killed bool
	exited bool
}

func newProcess(pid int, cmd terminal.Command) *Process {
	r, w := io.Pipe()
	return &Process{
		Cmd:    cmd,
		pid:    pid,
		outR:   r,
		outW:   w,
		exitCh: make(chan int, 1),
		done:   make(chan struct{}),
		cols:   cmd.Cols,
		rows:   cmd.Rows,
	}
}

// Emit writes output as if the shell printed it. It blocks until the
// backend has consumed it.
func (p *Process) Emit(s string) {
	_, _ = p.outW.Write([]byte(s))
}

// Exit terminates the process with code. Later calls are ignored.
func (p *Process) Exit(code int) {
	p.once.Do(func() {
		p.mu.Lock()
		p.exited = true
		p.mu.Unlock()
		_ = p.outW.Close()
		p.exitCh <- code
		close(p.done)
	})
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// Input returns everything written to the process.
func (p *Process) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.String()
}

// Size returns the last applied window size.
func (p *Process) Size() (cols, rows int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cols, p.rows
}

// Killed reports whether Kill was called.
func (p *Process) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// Exited reports whether the process has ended.
func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

func (p *Process) Read(b []byte) (int, error) { return p.outR.Read(b) }

func (p *Process) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.input.Write(b)
}

func (p *Process) Resize(cols, rows int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cols, p.rows = cols, rows
	return nil
}

func (p *Process) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.Exit(-1)
	return nil
}

func (p *Process) Wait() (int, error) { return <-p.exitCh, nil }

func (p *Process) Close() error { return p.outR.Close() }

func (p *Process) Pid() int { return p.pid }
