package script

import (
	"context"
	"sync"
)

// Task is the handle for a pipeline transform. Synchronous paths return
// an already-complete task; the external-fetch path completes when the
// wrapped code is installed, discarded as stale, or the fetch fails.
type Task struct {
	done chan struct{}

	mu        sync.Mutex
	err       error
	installed bool
	discarded bool
	blobURL   string
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func completedTask() *Task {
	t := newTask()
	close(t.done)
	return t
}

// Wait blocks until the task completes or the context is done, returning
// the fetch error if the task failed.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Installed reports whether wrapped code was installed onto the node.
func (t *Task) Installed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.installed
}

// Discarded reports whether the result was dropped because the node left
// the document before the fetch resolved.
func (t *Task) Discarded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.discarded
}

// BlobURL returns the installed blob URL, empty unless installed.
func (t *Task) BlobURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blobURL
}

// Err returns the fetch error, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Task) install(blobURL string) {
	t.mu.Lock()
	t.installed = true
	t.blobURL = blobURL
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) discard() {
	t.mu.Lock()
	t.discarded = true
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) fail(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
}
