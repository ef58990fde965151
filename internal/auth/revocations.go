package auth

import (
	"context"
	"sync"
	"time"
)

// Revoker remembers refresh-token ids that must no longer be accepted.
// redisx.RevocationList is the shared implementation.
// Revoke is a check-and-set: it reports false when jti was already revoked,
// so of two concurrent revocations exactly one wins.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocations is a process-local Revoker.
type MemoryRevocations struct {
	mu sync.Mutex
	m  map[string]time.Time
}

func NewMemoryRevocations() *MemoryRevocations {
	return &MemoryRevocations{m: map[string]time.Time{}}
}

func (r *MemoryRevocations) Revoke(_ context.Context, jti string, until time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for k, exp := range r.m {
		if exp.Before(now) {
			delete(r.m, k)
		}
	}
	if _, ok := r.m[jti]; ok {
		return false, nil
	}
	r.m[jti] = until
	return true, nil
}

func (r *MemoryRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[jti]
	return ok, nil
}
