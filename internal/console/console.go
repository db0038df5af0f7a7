// Package console is the terminal surface of the widget: a line-oriented
// renderer, a y/N confirmer and the interactive read loop.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/vzahanych/weather-widget/internal/recent"
	"github.com/vzahanych/weather-widget/internal/widget"
	"go.uber.org/zap"
)

const prompt = "> "

// Widget is the part of the controller the loop drives.
type Widget interface {
	Start(ctx context.Context) (widget.State, error)
	Submit(ctx context.Context, city string) (widget.State, error)
	SelectRecent(ctx context.Context, index int) (widget.State, error)
	ClearHistory(ctx context.Context, confirm recent.Confirmer) (bool, error)
	Recent() []string
}

// Console reads commands from in and writes views to out. It implements
// widget.Renderer and recent.Confirmer over the same streams.
type Console struct {
	in     *bufio.Scanner
	logger *zap.Logger

	mu  sync.Mutex
	out io.Writer
}

var (
	_ widget.Renderer  = (*Console)(nil)
	_ recent.Confirmer = (*Console)(nil)
)

func New(in io.Reader, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger.With(zap.String("component", "console")),
	}
}

func (c *Console) Render(v widget.View) {
	c.mu.Lock()
	defer c.mu.Unlock()
	writeView(c.out, v)
}

// Confirm asks prompt and reads one line; only y or yes agrees. End of input
// declines.
func (c *Console) Confirm(ctx context.Context, prompt string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.printf("%s [y/N] ", prompt)

	line, ok, err := c.readLine()
	if err != nil || !ok {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Run starts the widget and serves commands until :quit, end of input or ctx
// is done. Every other line is a search.
func (c *Console) Run(ctx context.Context, w Widget) error {
	c.printf("Type a city to search. Commands: :recent, :N (re-run entry N), :clear, :quit\n")

	if _, err := w.Start(ctx); err != nil && !errors.Is(err, widget.ErrSearchInProgress) {
		return fmt.Errorf("failed to start widget: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		c.printf(prompt)

		line, ok, err := c.readLine()
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if !ok {
			c.printf("\n")
			return nil
		}

		quit, err := c.handle(ctx, w, strings.TrimSpace(line))
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
	}
}

func (c *Console) handle(ctx context.Context, w Widget, line string) (bool, error) {
	if !strings.HasPrefix(line, ":") {
		_, err := w.Submit(ctx, line)
		return false, ignoreBusy(err)
	}

	switch cmd := strings.ToLower(strings.TrimPrefix(line, ":")); cmd {
	case "q", "quit", "exit":
		return true, nil
	case "recent", "r":
		c.mu.Lock()
		writeRecent(c.out, w.Recent(), true)
		c.mu.Unlock()
		return false, nil
	case "clear":
		cleared, err := w.ClearHistory(ctx, c)
		if err != nil {
			c.logger.Warn("Failed to clear recent searches", zap.Error(err))
			c.printf("Could not clear search history.\n")
			return false, nil
		}
		if !cleared {
			c.printf("Search history kept.\n")
		}
		return false, nil
	default:
		n, err := strconv.Atoi(cmd)
		if err != nil {
			c.printf("Unknown command %q\n", line)
			return false, nil
		}
		_, err = w.SelectRecent(ctx, n-1)
		if errors.Is(err, widget.ErrNoSuchRecent) {
			c.printf("No recent search #%d\n", n)
			return false, nil
		}
		return false, ignoreBusy(err)
	}
}

func (c *Console) readLine() (string, bool, error) {
	if c.in.Scan() {
		return c.in.Text(), true, nil
	}
	return "", false, c.in.Err()
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// ignoreBusy drops ErrSearchInProgress; the loop is sequential so it only
// shows up if another surface shares the controller.
func ignoreBusy(err error) error {
	if errors.Is(err, widget.ErrSearchInProgress) {
		return nil
	}
	return err
}
