// Package terminal owns shell processes running on a pseudo-terminal.
//
// A Backend holds at most one process. Spawn resolves the shell, arguments
// and working directory, then streams output through a Subscription from a
// single reader goroutine. Exit is delivered exactly once per spawn, whether
// the shell exits by itself, is killed, or fails to start.
//
// Features:
//   - PTY support through creack/pty
//   - Login-shell arguments for zsh, bash and fish
//   - TERM=xterm-256color plus a configurable environment overlay
//   - Missing working directory fallback with an in-terminal diagnostic
//   - Rate-limited failure notices and Prometheus spawn accounting
//
// Example Usage:
//
//	b := terminal.NewBackend(terminal.Options{Logger: logger})
//	sub := terminal.NewSubscription(surface.Write, onExit)
//	_ = b.Spawn(ctx, terminal.Request{Dir: "/home/me", Cols: 80, Rows: 24}, sub)
//	_ = b.Write([]byte("ls -la\r"))
//	b.Resize(120, 40)
//
//	// Tear down delivery before killing so no late output leaks.
//	sub.Dispose()
//	b.Kill()
package terminal
