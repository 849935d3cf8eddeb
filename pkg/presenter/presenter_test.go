package presenter

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dukex/storyflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 2 * time.Second

func waitPending(t *testing.T, q *Queue, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return len(q.Pending()) == n
	}, testTimeout, time.Millisecond)
}

func TestQueue_Choose(t *testing.T) {
	q := NewQueue()
	result := make(chan int, 1)

	go func() {
		index, err := q.ShowChoice(context.Background(), models.ChoicePrompt{
			NodeID:   "pick",
			Variants: []string{"Forest", "Mountain"},
		})
		assert.NoError(t, err)
		result <- index
	}()

	waitPending(t, q, 1)

	prompt := q.Pending()[0]
	assert.Equal(t, PromptChoice, prompt.Kind)
	assert.Equal(t, "pick", prompt.NodeID)

	require.ErrorIs(t, q.Choose("pick", 2), ErrInvalidChoice)
	require.ErrorIs(t, q.Advance("pick"), ErrPromptMismatch)
	require.NoError(t, q.Choose("", 1))

	assert.Equal(t, 1, <-result)
	assert.Empty(t, q.Pending())
}

func TestQueue_AdvanceConcurrentLines(t *testing.T) {
	q := NewQueue()
	done := make(chan string, 2)

	for _, id := range []string{"left", "right"} {
		go func() {
			assert.NoError(t, q.ShowDialogue(context.Background(), models.DialogueLine{NodeID: id, Text: id}))
			done <- id
		}()
	}

	waitPending(t, q, 2)

	require.ErrorIs(t, q.Advance(""), ErrAmbiguousPrompt)
	require.NoError(t, q.Advance("right"))
	assert.Equal(t, "right", <-done)

	require.NoError(t, q.Advance(""))
	assert.Equal(t, "left", <-done)
}

func TestQueue_NoPendingPrompt(t *testing.T) {
	q := NewQueue()

	assert.ErrorIs(t, q.Advance(""), ErrNoPendingPrompt)
	assert.ErrorIs(t, q.Choose("ghost", 0), ErrNoPendingPrompt)
}

func TestQueue_CancelledPromptIsWithdrawn(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)

	go func() {
		errs <- q.ShowDialogue(ctx, models.DialogueLine{NodeID: "line"})
	}()

	waitPending(t, q, 1)
	cancel()

	require.ErrorIs(t, <-errs, context.Canceled)
	assert.Empty(t, q.Pending())
}

func TestTerminal_ShowChoice(t *testing.T) {
	var out bytes.Buffer

	term := NewTerminal(strings.NewReader("9\nabc\n2\n"), &out)

	index, err := term.ShowChoice(context.Background(), models.ChoicePrompt{
		NodeID:   "pick",
		Text:     "Where to?",
		Variants: []string{"Forest", "Mountain"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, index)
	assert.Contains(t, out.String(), "Where to?")
	assert.Contains(t, out.String(), "  2) Mountain")
	assert.Equal(t, 2, strings.Count(out.String(), "pick a number between 1 and 2"))
}

func TestTerminal_ShowDialogue(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    []TerminalOption
		wantErr error
	}{
		{name: "waits for enter", input: "\n"},
		{name: "auto advance", opts: []TerminalOption{WithAutoAdvance()}},
		{name: "input closed", wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer

			term := NewTerminal(strings.NewReader(tt.input), &out, tt.opts...)

			err := term.ShowDialogue(context.Background(), models.DialogueLine{Character: "Ann", Text: "Hello"})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Ann: Hello\n", out.String())
		})
	}
}
