// Package session maintains the table of active pairings. The table is the
// single source of truth for "who is my partner": every session is stored as
// two directed entries (A→B and B→A) that are created and removed together,
// so the table is symmetric at all times and a user has at most one partner.
package session

import "sync"

// Pairing describes one side of an active session.
type Pairing struct {
	Partner int64
	ChatID  string // shared by both sides, used for event correlation
}

// Table is the bidirectional map of active pairings. It is goroutine-safe:
// the engine mutates it under its own lock, while pacer delivery workers read
// it concurrently to re-validate a session before each send.
type Table struct {
	mu       sync.RWMutex
	pairings map[int64]Pairing
}

// NewTable creates an empty session table.
func NewTable() *Table {
	return &Table{pairings: make(map[int64]Pairing)}
}

// Partner returns the current partner of user, if any.
func (t *Table) Partner(user int64) (int64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.pairings[user]
	return p.Partner, ok
}

// ChatID returns the chat identifier of the user's active session.
func (t *Table) ChatID(user int64) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.pairings[user]
	return p.ChatID, ok
}

// Active returns true if the user currently has a partner.
func (t *Table) Active(user int64) bool {
	_, ok := t.Partner(user)
	return ok
}

// Create inserts both directions of a new session in one critical section.
// It returns false without modifying the table if either user already has a
// partner or the two IDs are equal.
func (t *Table) Create(a, b int64, chatID string) bool {
	if a == b {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, busy := t.pairings[a]; busy {
		return false
	}
	if _, busy := t.pairings[b]; busy {
		return false
	}

	t.pairings[a] = Pairing{Partner: b, ChatID: chatID}
	t.pairings[b] = Pairing{Partner: a, ChatID: chatID}
	return true
}

// Remove deletes both directions of the user's session in one critical
// section and returns the former partner and chat ID. Removing a user with
// no session is a no-op that returns ok=false, so callers can invoke it
// idempotently.
func (t *Table) Remove(user int64) (partner int64, chatID string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, found := t.pairings[user]
	if !found {
		return 0, "", false
	}

	delete(t.pairings, user)
	delete(t.pairings, p.Partner)
	return p.Partner, p.ChatID, true
}

// Len returns the number of users currently paired (twice the session count).
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.pairings)
}
