// Package block keeps the symmetric "will not be matched again" relation
// between users. A block is unordered: once either side blocks the other,
// Blocked reports true for both argument orders. Blocks live for the process
// lifetime; there is no unblock operation.
package block

import "sync"

// pair is the normalized (low, high) form of an unordered user pair.
type pair struct {
	lo, hi int64
}

func makePair(a, b int64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{lo: a, hi: b}
}

// Registry is the goroutine-safe set of blocked pairs.
type Registry struct {
	mu    sync.RWMutex
	pairs map[pair]struct{}
}

// NewRegistry creates an empty block registry.
func NewRegistry() *Registry {
	return &Registry{pairs: make(map[pair]struct{})}
}

// Add records a block between two users. Adding an existing pair is a no-op.
func (r *Registry) Add(a, b int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pairs[makePair(a, b)] = struct{}{}
}

// Blocked reports whether either user has blocked the other.
func (r *Registry) Blocked(a, b int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.pairs[makePair(a, b)]
	return ok
}

// Pairs returns a snapshot of all blocked pairs as (low, high) ID tuples,
// used by the persistence mirror.
func (r *Registry) Pairs() [][2]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([][2]int64, 0, len(r.pairs))
	for p := range r.pairs {
		out = append(out, [2]int64{p.lo, p.hi})
	}
	return out
}
