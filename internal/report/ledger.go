// Package report tracks abuse reports. The Ledger is the in-memory core
// state: cumulative report counters per user plus a per-session guard that
// keeps a reporter from filing twice against the same partner. Durable
// archiving for moderator review is a separate PostgreSQL store consumed by
// the moderation sidecar.
package report

import "sync"

// Ledger holds report counters and the one-report-per-session guard.
// It is goroutine-safe.
type Ledger struct {
	mu     sync.Mutex
	counts map[int64]int      // reported user -> cumulative count
	guard  map[int64]struct{} // reporters who already filed in their current session
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		counts: make(map[int64]int),
		guard:  make(map[int64]struct{}),
	}
}

// File records a report by reporter against reported. It returns the new
// cumulative count for the reported user and ok=true, or ok=false if the
// reporter's guard is already set for this session (duplicate report).
func (l *Ledger) File(reporter, reported int64) (count int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.guard[reporter]; dup {
		return l.counts[reported], false
	}
	l.guard[reporter] = struct{}{}
	l.counts[reported]++
	return l.counts[reported], true
}

// Count returns the cumulative report count for a user.
func (l *Ledger) Count(user int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.counts[user]
}

// ResetGuard clears the user's report guard. Called whenever the user enters
// a new session, restoring their right to file one report against the new
// partner.
func (l *Ledger) ResetGuard(user int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.guard, user)
}
