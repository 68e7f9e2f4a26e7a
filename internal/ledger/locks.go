package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"referral-ledger-go/internal/store"

	"golang.org/x/sync/semaphore"
)

// pairKey identifies one ledger partition.
type pairKey struct {
	userId       string
	restaurantId string
}

func (k pairKey) String() string {
	return k.restaurantId + "/" + k.userId
}

type lockEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// pairLocks is a keyed mutex over (user, restaurant) pairs. Entries are
// reference counted and dropped once nobody holds or waits on them.
type pairLocks struct {
	mu      sync.Mutex
	entries map[pairKey]*lockEntry
	timeout time.Duration
}

func newPairLocks(timeout time.Duration) *pairLocks {
	return &pairLocks{
		entries: make(map[pairKey]*lockEntry),
		timeout: timeout,
	}
}

// sortKeys orders keys and removes duplicates so every caller acquires in
// the same global order.
func sortKeys(keys []pairKey) []pairKey {
	sorted := append([]pairKey(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].restaurantId != sorted[j].restaurantId {
			return sorted[i].restaurantId < sorted[j].restaurantId
		}
		return sorted[i].userId < sorted[j].userId
	})

	out := sorted[:0]
	for i, k := range sorted {
		if i > 0 && k == sorted[i-1] {
			continue
		}
		out = append(out, k)
	}
	return out
}

// acquire locks every key or none. The returned func releases them.
func (l *pairLocks) acquire(ctx context.Context, keys []pairKey) (func(), error) {
	keys = sortKeys(keys)
	held := make([]pairKey, 0, len(keys))
	releaseAll := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}

	for _, k := range keys {
		if err := l.acquireOne(ctx, k); err != nil {
			releaseAll()
			return nil, err
		}
		held = append(held, k)
	}
	return releaseAll, nil
}

func (l *pairLocks) acquireOne(ctx context.Context, k pairKey) error {
	l.mu.Lock()
	e, ok := l.entries[k]
	if !ok {
		e = &lockEntry{sem: semaphore.NewWeighted(1)}
		l.entries[k] = e
	}
	e.refs++
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if err := e.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(k)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s", store.ErrBusy, k)
	}
	return nil
}

func (l *pairLocks) release(k pairKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[k]
	e.sem.Release(1)
	e.refs--
	if e.refs == 0 {
		delete(l.entries, k)
	}
}

func (l *pairLocks) unref(k pairKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := l.entries[k]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, k)
	}
}

func (l *pairLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
