package session

import (
	"context"
	"errors"
)

type writeOp struct {
	run  func(ctx context.Context) error
	done chan error
}

// runWriter applies local store operations one at a time, in submission
// order. Operations run detached from the liveness context so an accepted
// message is still written after Close.
func (m *Manager) runWriter() {
	defer close(m.writerDone)

	ctx := context.WithoutCancel(m.alive)
	for op := range m.queue {
		var err error
		if op.run != nil {
			err = op.run(ctx)
		}
		if op.done != nil {
			op.done <- err
		}
	}
}

// enqueue submits fn without waiting. It reports false once the manager is closed.
func (m *Manager) enqueue(fn func(ctx context.Context) error) bool {
	return m.submit(writeOp{run: fn})
}

// queued submits fn and waits for it to run
func (m *Manager) queued(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	if !m.submit(writeOp{run: fn, done: done}) {
		return ErrClosed
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) submit(op writeOp) bool {
	m.lifeMu.RLock()
	defer m.lifeMu.RUnlock()
	if m.closed {
		return false
	}
	m.queue <- op
	return true
}

// flush waits for every operation submitted so far
func (m *Manager) flush() {
	if err := m.queued(context.Background(), nil); errors.Is(err, ErrClosed) {
		<-m.writerDone
	}
}
