package client

import (
	"context"
	"errors"
	"sync"
)

var ErrSuperseded = errors.New("superseded by a newer request")

// Latest guards a read whose result only matters while it is the newest one,
// such as a list reloaded on every filter change. Starting a read cancels
// the one before it. Mutating calls must not go through Latest.
type Latest struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func (l *Latest) start(ctx context.Context) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	l.seq++
	cctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	return cctx, l.seq
}

func (l *Latest) finish(seq uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		return false
	}
	l.cancel()
	l.cancel = nil
	return true
}

// Fetch runs fn under l. A call overtaken by a newer one returns ErrSuperseded
// whatever fn returned.
func Fetch[T any](ctx context.Context, l *Latest, fn func(context.Context) (T, error)) (T, error) {
	cctx, seq := l.start(ctx)
	v, err := fn(cctx)
	if !l.finish(seq) {
		var zero T
		return zero, ErrSuperseded
	}
	return v, err
}
