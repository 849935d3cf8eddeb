package presenter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/dukex/storyflow/pkg/models"
)

// Terminal prints lines and choices to out and reads the player's answers
// from in, one per line.
type Terminal struct {
	out         io.Writer
	autoAdvance bool

	mu    sync.Mutex
	lines chan string
	in    io.Reader
	once  sync.Once
}

type TerminalOption func(*Terminal)

// WithAutoAdvance shows dialogue lines without waiting for Enter.
func WithAutoAdvance() TerminalOption {
	return func(t *Terminal) {
		t.autoAdvance = true
	}
}

func NewTerminal(in io.Reader, out io.Writer, opts ...TerminalOption) *Terminal {
	t := &Terminal{
		in:    in,
		out:   out,
		lines: make(chan string),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Terminal) ShowDialogue(ctx context.Context, line models.DialogueLine) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if line.Character != "" {
		fmt.Fprintf(t.out, "%s: %s\n", line.Character, line.Text)
	} else {
		fmt.Fprintln(t.out, line.Text)
	}

	if t.autoAdvance {
		return nil
	}

	_, err := t.readLine(ctx)

	return err
}

// ShowChoice lists the variants numbered from 1 and asks again until a
// valid number is entered.
func (t *Terminal) ShowChoice(ctx context.Context, prompt models.ChoicePrompt) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prompt.Text != "" {
		fmt.Fprintln(t.out, prompt.Text)
	}

	for i, variant := range prompt.Variants {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, variant)
	}

	for {
		fmt.Fprint(t.out, "> ")

		answer, err := t.readLine(ctx)
		if err != nil {
			return -1, err
		}

		index, err := strconv.Atoi(strings.TrimSpace(answer))
		if err == nil && index >= 1 && index <= len(prompt.Variants) {
			return index - 1, nil
		}

		fmt.Fprintf(t.out, "pick a number between 1 and %d\n", len(prompt.Variants))
	}
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.once.Do(func() {
		go t.scan()
	})

	select {
	case line, ok := <-t.lines:
		if !ok {
			return "", io.EOF
		}

		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (t *Terminal) scan() {
	defer close(t.lines)

	scanner := bufio.NewScanner(t.in)
	for scanner.Scan() {
		t.lines <- scanner.Text()
	}
}
