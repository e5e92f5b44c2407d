package system

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termdock/internal/infrastructure/resilience"
)

// Runner starts an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// Opener hands URLs and paths to the OS default handler. Repeated launch
// failures open a breaker so a missing launcher is not retried on every
// click.
type Opener struct {
	goos    string
	run     Runner
	logger  *zap.Logger
	breaker *resilience.Breaker
}

// NewOpener creates an opener for the running platform.
func NewOpener(logger *zap.Logger) *Opener {
	return NewOpenerFor(runtime.GOOS, startDetached, logger)
}

// NewOpenerFor creates an opener for goos using run.
func NewOpenerFor(goos string, run Runner, logger *zap.Logger) *Opener {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Opener{goos: goos, run: run, logger: logger}
	o.breaker = resilience.New("opener", resilience.Settings{
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("launcher breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return o
}

// OpenURL opens a URL, mailto: address or internal URI.
func (o *Opener) OpenURL(ctx context.Context, url string) error {
	return o.open(ctx, url)
}

// OpenPath opens a local file with its default application.
func (o *Opener) OpenPath(ctx context.Context, path string) error {
	return o.open(ctx, path)
}

func (o *Opener) open(ctx context.Context, target string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return fmt.Errorf("empty open target")
	}
	name, args := o.command(target)
	o.logger.Debug("opening with system handler", zap.String("target", target), zap.String("cmd", name))
	err := o.breaker.Do(func() error {
		return o.run(ctx, name, args...)
	})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", target, err)
	}
	return nil
}

// command returns the platform launcher for target.
func (o *Opener) command(target string) (string, []string) {
	switch o.goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", target}
	default:
		return "xdg-open", []string{target}
	}
}

// startDetached starts the launcher without waiting for the opened
// application.
func startDetached(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
