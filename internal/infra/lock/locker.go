// Package lock provides the "sweep in progress" guard.
package lock

import (
	"context"
	"sync"
	"time"
)

// Locker acquires a named lease that expires on its own after ttl.
// ok is false when someone else holds the lease; release is nil in that case.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// LocalLocker guards against overlap inside a single process.
type LocalLocker struct {
	mu     sync.Mutex
	leases map[string]localLease
	seq    uint64
	now    func() time.Time
}

type localLease struct {
	id        uint64
	expiresAt time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{leases: make(map[string]localLease), now: time.Now}
}

func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, held := l.leases[key]; held && now.Before(cur.expiresAt) {
		return nil, false, nil
	}
	l.seq++
	id := l.seq
	l.leases[key] = localLease{id: id, expiresAt: now.Add(ttl)}

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if cur, held := l.leases[key]; held && cur.id == id {
			delete(l.leases, key)
		}
	}
	return release, true, nil
}
