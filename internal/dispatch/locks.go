package dispatch

import (
	"sort"
	"sync"
)

// FixLocks serializes fix-mode invocations that touch overlapping files,
// so two linters both declaring Fixes never race to rewrite the same
// path. Paths are locked in sorted order regardless of batch order to
// avoid a lock-ordering deadlock between two invocations whose batches
// overlap but were built in different orders.
type FixLocks struct {
	locks sync.Map // path -> *sync.Mutex
}

func (fl *FixLocks) mutexFor(path string) *sync.Mutex {
	v, _ := fl.locks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Acquire locks every distinct path in paths, in sorted order, and
// returns a function that releases them all. paths is deduplicated
// explicitly: mutexFor maps a path to one non-reentrant *sync.Mutex, so
// a repeated path would otherwise self-deadlock on its second Lock.
func (fl *FixLocks) Acquire(paths []string) func() {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	sorted = dedupSorted(sorted)

	held := make([]*sync.Mutex, 0, len(sorted))
	for _, p := range sorted {
		m := fl.mutexFor(p)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}

func dedupSorted(sorted []string) []string {
	out := sorted[:0]
	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			out = append(out, p)
		}
	}
	return out
}
