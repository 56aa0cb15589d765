package service

import (
	"context"
	"sync"
	"time"

	"github.com/rl1809/pet-storefront/internal/core/domain"
)

// snapshotWriter saves carts on a background goroutine. Only the newest
// pending snapshot is kept, so a burst of commands costs one write.
type snapshotWriter struct {
	persistence *CartPersistence
	timeout     time.Duration

	mu       sync.Mutex
	pending  *domain.Cart
	queued   uint64
	written  uint64
	progress chan struct{}
	stopped  bool

	wake chan struct{}
	done chan struct{}
}

func newSnapshotWriter(p *CartPersistence, timeout time.Duration) *snapshotWriter {
	w := &snapshotWriter{
		persistence: p,
		timeout:     timeout,
		progress:    make(chan struct{}),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *snapshotWriter) schedule(cart domain.Cart) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	c := cart.Clone()
	w.pending = &c
	w.queued++

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *snapshotWriter) loop() {
	defer close(w.done)
	for range w.wake {
		w.drain()
	}
	w.drain()
}

func (w *snapshotWriter) drain() {
	for {
		w.mu.Lock()
		if w.pending == nil {
			w.mu.Unlock()
			return
		}
		cart, seq := *w.pending, w.queued
		w.pending = nil
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		// failures are logged by Save and never reach the caller
		_ = w.persistence.Save(ctx, cart)
		cancel()

		w.mu.Lock()
		w.written = seq
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

// flush blocks until every snapshot scheduled before the call was attempted.
func (w *snapshotWriter) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.queued
	w.mu.Unlock()

	for {
		w.mu.Lock()
		if w.written >= target {
			w.mu.Unlock()
			return nil
		}
		progress := w.progress
		w.mu.Unlock()

		select {
		case <-progress:
		case <-w.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *snapshotWriter) stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.wake)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
