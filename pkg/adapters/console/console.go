// Package console runs a conversation on a local terminal. It is both the
// Provider the bridge delivers to and the read loop that feeds the bridge.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/parley/internal/logging"
	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/domain"
	"golang.org/x/term"
)

// DefaultNumber identifies the local subscriber when none is configured.
const DefaultNumber = "console"

// Dispatcher is the slice of the bridge the console drives.
type Dispatcher interface {
	HandleInbound(ctx context.Context, id string, in domain.Inbound) ([]domain.Effect, error)
}

// Console reads subscriber lines from a reader and prints bot messages to a writer.
type Console struct {
	reader *bufio.Reader
	mu     sync.Mutex
	out    io.Writer
	render tui.Renderer
	number string
	logger *slog.Logger
}

// Option configures a Console.
type Option func(*Console)

// WithRenderer sets the renderer used for bot text.
func WithRenderer(r tui.Renderer) Option {
	return func(c *Console) {
		c.render = r
	}
}

// WithNumber sets the subscriber id used for inbound messages.
func WithNumber(number string) Option {
	return func(c *Console) {
		if number != "" {
			c.number = number
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Console) {
		c.logger = logger
	}
}

// New creates a console bound to r and w. Nil values default to Stdin and
// Stdout, and the renderer is styled only when w is a terminal.
func New(r io.Reader, w io.Writer, opts ...Option) *Console {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	c := &Console{
		reader: bufio.NewReader(r),
		out:    w,
		number: DefaultNumber,
		logger: logging.NewNop(),
	}
	c.render = tui.NewRenderer(IsTerminal(w))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Number returns the subscriber id of the local user.
func (c *Console) Number() string {
	return c.number
}

// Send prints one bot message. Messages for other subscribers are shown
// with their recipient so broadcasts stay visible.
func (c *Console) Send(ctx context.Context, to string, msg domain.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := "bot> "
	if to != c.number {
		prefix = fmt.Sprintf("bot[%s]> ", to)
	}
	if msg.Text != "" {
		text, err := c.render(msg.Text)
		if err != nil {
			text = msg.Text
		}
		if _, err := fmt.Fprintln(c.out, prefix+strings.TrimSpace(text)); err != nil {
			return err
		}
	}
	if msg.Media != "" {
		if _, err := fmt.Fprintf(c.out, "%s[media] %s\n", prefix, msg.Media); err != nil {
			return err
		}
	}
	return nil
}

// Run feeds every line read to d until the input ends, the user types quit
// or ctx is cancelled. A line of the form "/media <url> [caption]" is sent
// as a media message.
func (c *Console) Run(ctx context.Context, d Dispatcher) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for {
			text, err := c.reader.ReadString('\n')
			if text != "" {
				select {
				case lines <- text:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					readErr <- err
				}
				return
			}
		}
	}()

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case text, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			line := strings.TrimSpace(text)
			if line == "" {
				continue
			}
			if line == "quit" || line == "exit" {
				return nil
			}
			if _, err := d.HandleInbound(ctx, c.number, ParseLine(line)); err != nil {
				c.logger.Debug("Turn failed", "number", c.number, "err", err)
				c.system("Error: %v", err)
			}
		}
	}
}

// ParseLine turns a typed line into an inbound message.
func ParseLine(line string) domain.Inbound {
	rest, ok := strings.CutPrefix(line, "/media ")
	if !ok {
		return domain.Inbound{Body: line}
	}
	url, caption, _ := strings.Cut(strings.TrimSpace(rest), " ")
	return domain.Inbound{Body: strings.TrimSpace(caption), Media: url}
}

func (c *Console) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.out, "> ")
}

func (c *Console) system(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[System] %s\n", fmt.Sprintf(format, args...))
}
