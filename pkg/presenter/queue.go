// Package presenter provides models.Presenter implementations: a queue that
// remote players answer through the control API and a terminal presenter.
package presenter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dukex/storyflow/pkg/models"
)

var (
	ErrNoPendingPrompt = errors.New("no pending prompt")
	ErrAmbiguousPrompt = errors.New("more than one prompt pending, node_id required")
	ErrPromptMismatch  = errors.New("pending prompt has another kind")
	ErrInvalidChoice   = errors.New("choice index out of range")
)

type PromptKind string

const (
	PromptDialogue PromptKind = "dialogue"
	PromptChoice   PromptKind = "choice"
)

// Prompt is a line or a choice waiting for the player.
type Prompt struct {
	Kind     PromptKind           `json:"kind"`
	NodeID   string               `json:"node_id"`
	Dialogue *models.DialogueLine `json:"dialogue,omitempty"`
	Choice   *models.ChoicePrompt `json:"choice,omitempty"`
	ShownAt  time.Time            `json:"shown_at"`
}

type pending struct {
	prompt Prompt
	reply  chan int
}

// Queue holds the prompts of a run until they are answered. Branch chains
// may wait on several prompts at once; each is keyed by its node id.
type Queue struct {
	mu      sync.Mutex
	pending []*pending
}

func NewQueue() *Queue {
	return &Queue{}
}

// ShowDialogue blocks until the line is advanced or ctx is done.
func (q *Queue) ShowDialogue(ctx context.Context, line models.DialogueLine) error {
	_, err := q.wait(ctx, Prompt{Kind: PromptDialogue, NodeID: line.NodeID, Dialogue: &line})

	return err
}

// ShowChoice blocks until a variant is chosen or ctx is done.
func (q *Queue) ShowChoice(ctx context.Context, prompt models.ChoicePrompt) (int, error) {
	return q.wait(ctx, Prompt{Kind: PromptChoice, NodeID: prompt.NodeID, Choice: &prompt})
}

// Pending returns the prompts waiting for an answer, oldest first.
func (q *Queue) Pending() []Prompt {
	q.mu.Lock()
	defer q.mu.Unlock()

	prompts := make([]Prompt, len(q.pending))
	for i, p := range q.pending {
		prompts[i] = p.prompt
	}

	return prompts
}

// Advance acknowledges the dialogue line shown by nodeID. An empty nodeID
// picks the only pending prompt.
func (q *Queue) Advance(nodeID string) error {
	return q.answer(nodeID, PromptDialogue, 0)
}

// Choose selects variant index of the choice shown by nodeID. An empty
// nodeID picks the only pending prompt.
func (q *Queue) Choose(nodeID string, index int) error {
	return q.answer(nodeID, PromptChoice, index)
}

func (q *Queue) wait(ctx context.Context, prompt Prompt) (int, error) {
	prompt.ShownAt = time.Now().UTC()
	p := &pending{prompt: prompt, reply: make(chan int, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, p)
	q.mu.Unlock()

	select {
	case index := <-p.reply:
		return index, nil
	case <-ctx.Done():
		q.remove(p)

		return -1, ctx.Err()
	}
}

func (q *Queue) answer(nodeID string, kind PromptKind, index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, err := q.findLocked(nodeID)
	if err != nil {
		return err
	}

	if p.prompt.Kind != kind {
		return fmt.Errorf("%w: %s is a %s", ErrPromptMismatch, p.prompt.NodeID, p.prompt.Kind)
	}

	if kind == PromptChoice && (index < 0 || index >= len(p.prompt.Choice.Variants)) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChoice, index, len(p.prompt.Choice.Variants))
	}

	q.pending = slices.DeleteFunc(q.pending, func(other *pending) bool { return other == p })
	p.reply <- index

	return nil
}

func (q *Queue) findLocked(nodeID string) (*pending, error) {
	if nodeID == "" {
		switch len(q.pending) {
		case 0:
			return nil, ErrNoPendingPrompt
		case 1:
			return q.pending[0], nil
		default:
			return nil, ErrAmbiguousPrompt
		}
	}

	for _, p := range q.pending {
		if p.prompt.NodeID == nodeID {
			return p, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoPendingPrompt, nodeID)
}

func (q *Queue) remove(p *pending) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = slices.DeleteFunc(q.pending, func(other *pending) bool { return other == p })
}
