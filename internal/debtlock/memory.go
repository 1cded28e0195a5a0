package debtlock

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker is an in-process keyed mutex for single-replica deployments.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[snowflake.ID]*memoryEntry
	wait    time.Duration
}

// NewMemoryLocker returns a locker that waits at most wait before giving up
// with ErrDebtBusy.
func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[snowflake.ID]*memoryEntry),
		wait:    wait,
	}
}

func (l *MemoryLocker) Lock(ctx context.Context, debtID snowflake.ID) (Release, error) {
	l.mu.Lock()
	entry, ok := l.entries[debtID]
	if !ok {
		entry = &memoryEntry{ch: make(chan struct{}, 1)}
		l.entries[debtID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(debtID, entry)
		return nil, ctx.Err()
	case <-timer.C:
		l.unref(debtID, entry)
		return nil, ErrDebtBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.unref(debtID, entry)
		})
	}, nil
}

func (l *MemoryLocker) unref(debtID snowflake.ID, entry *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, debtID)
	}
}
