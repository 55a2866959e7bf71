// Package queue provides the bounded hand-off queue used between pipeline
// stages. Producers never block: when the queue is full the oldest element is
// evicted and returned to the caller so the loss can be reported.
package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("queue: closed")

// Ring is a thread-safe FIFO with a fixed capacity and drop-oldest overflow.
type Ring[T any] struct {
	notify chan struct{}
	done   chan struct{}

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closed     bool
	dropped    uint64
}

// New creates a Ring holding at most size elements. Sizes below one are
// raised to one.
func New[T any](size int) *Ring[T] {
	if size < 1 {
		size = 1
	}
	return &Ring[T]{
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
		buf:    make([]T, size),
	}
}

// Push appends v. If the ring was full the evicted oldest element is returned
// with evicted set to true. Pushing to a closed ring is a no-op that reports
// ErrClosed.
func (r *Ring[T]) Push(v T) (old T, evicted bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return old, false, ErrClosed
	}

	size := int64(len(r.buf))
	if r.tail-r.head == size {
		idx := r.head % size
		old = r.buf[idx]
		var zero T
		r.buf[idx] = zero
		r.head++
		r.dropped++
		evicted = true
	}
	r.buf[r.tail%size] = v
	r.tail++

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return old, evicted, nil
}

// TryPop removes the oldest element without blocking.
func (r *Ring[T]) TryPop() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.popLocked()
}

func (r *Ring[T]) popLocked() (T, bool) {
	var zero T
	if r.head == r.tail {
		return zero, false
	}
	idx := r.head % int64(len(r.buf))
	v := r.buf[idx]
	r.buf[idx] = zero
	r.head++
	return v, true
}

// Pop blocks until an element is available, the context ends, or the ring is
// closed and empty. Elements queued before Close are still delivered.
func (r *Ring[T]) Pop(ctx context.Context) (T, error) {
	for {
		r.mu.Lock()
		v, ok := r.popLocked()
		closed := r.closed
		r.mu.Unlock()
		if ok {
			return v, nil
		}
		if closed {
			var zero T
			return zero, ErrClosed
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-r.notify:
		case <-r.done:
		}
	}
}

// Drain removes and returns everything currently queued.
func (r *Ring[T]) Drain() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, r.tail-r.head)
	for {
		v, ok := r.popLocked()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// Len reports the number of queued elements.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.tail - r.head)
}

// Cap reports the fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Dropped reports how many elements were evicted by overflow.
func (r *Ring[T]) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops further pushes and wakes blocked readers.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.done)
}
