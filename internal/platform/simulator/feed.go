package simulator

import (
	"context"
	"sync"
)

// feed is one subscriber channel. Sends and close are serialized so a send
// never races the close that follows cancellation.
type feed[T any] struct {
	ctx    context.Context
	ch     chan T
	mu     sync.Mutex
	closed bool
}

func newFeed[T any](ctx context.Context) *feed[T] {
	return &feed[T]{ctx: ctx, ch: make(chan T)}
}

func (f *feed[T]) send(ctx context.Context, v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	select {
	case f.ch <- v:
	case <-f.ctx.Done():
	case <-ctx.Done():
	}
}

func (f *feed[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
}

func without[T comparable](s []T, v T) []T {
	out := s[:0:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
