package nodes

import (
	"context"
	"sync"
)

// Task tracks the effect an async node started in Execute. Each Start
// arms a fresh completion channel; Stop cancels the effect and completes it.
type Task struct {
	mu     sync.Mutex
	done   chan struct{}
	cancel context.CancelFunc
}

// Start runs fn on its own goroutine and completes the task when fn returns.
// A task still in flight is stopped first.
func (t *Task) Start(ctx context.Context, fn func(ctx context.Context)) {
	taskCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	t.mu.Lock()
	t.stopLocked()
	t.done = done
	t.cancel = cancel
	t.mu.Unlock()

	go func() {
		defer cancel()

		fn(taskCtx)

		t.mu.Lock()
		defer t.mu.Unlock()

		closeDone(done)
	}()
}

// Complete finishes the current effect without cancelling it.
func (t *Task) Complete() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		t.done = make(chan struct{})
	}

	closeDone(t.done)
}

// Done returns the completion channel of the current effect, or nil when
// nothing was started.
func (t *Task) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return nil
	}

	return t.done
}

// Stop cancels the current effect and completes it.
func (t *Task) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
}

func (t *Task) stopLocked() {
	if t.cancel != nil {
		t.cancel()
	}

	if t.done != nil {
		closeDone(t.done)
	}
}

func closeDone(done chan struct{}) {
	select {
	case <-done:
	default:
		close(done)
	}
}
