// Package auth implements the authorization gate. Access is invite-based: a
// user redeems one of the configured invite codes once and stays authorized
// for the process lifetime, unless the owner revokes them. Revocation is a
// separate flag on top of authorization, so an un-revoked user does not need
// to redeem a code again.
package auth

import (
	"strings"
	"sync"
)

// Gate tracks which user IDs are authorized and which are revoked.
// It is goroutine-safe.
type Gate struct {
	mu         sync.RWMutex
	codes      map[string]struct{}
	authorized map[int64]struct{}
	revoked    map[int64]struct{}
}

// NewGate creates a gate accepting the given invite codes. Codes are
// matched case-insensitively and with surrounding whitespace ignored.
func NewGate(codes []string) *Gate {
	g := &Gate{
		codes:      make(map[string]struct{}, len(codes)),
		authorized: make(map[int64]struct{}),
		revoked:    make(map[int64]struct{}),
	}
	for _, c := range codes {
		c = normalizeCode(c)
		if c != "" {
			g.codes[c] = struct{}{}
		}
	}
	return g
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Join redeems an invite code for a user. Returns true if the code was valid
// and the user is now authorized. Revoked users cannot rejoin with a code;
// only the owner's allow operation clears revocation.
func (g *Gate) Join(user int64, code string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, rev := g.revoked[user]; rev {
		return false
	}
	if _, ok := g.codes[normalizeCode(code)]; !ok {
		return false
	}
	g.authorized[user] = struct{}{}
	return true
}

// IsAuthorized reports whether the user has redeemed an invite code (or been
// allowed by the owner). Revocation is checked separately via IsRevoked.
func (g *Gate) IsAuthorized(user int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.authorized[user]
	return ok
}

// IsRevoked reports whether the user is currently revoked.
func (g *Gate) IsRevoked(user int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, ok := g.revoked[user]
	return ok
}

// Revoke marks a user revoked. Their authorization is kept so a later Allow
// restores access without a new invite code.
func (g *Gate) Revoke(user int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.revoked[user] = struct{}{}
}

// Allow clears the revoked flag and authorizes the user.
func (g *Gate) Allow(user int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.revoked, user)
	g.authorized[user] = struct{}{}
}

// Restore seeds the gate from persisted state, used at startup when a
// persistence mirror is configured.
func (g *Gate) Restore(authorized, revoked []int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range authorized {
		g.authorized[id] = struct{}{}
	}
	for _, id := range revoked {
		g.revoked[id] = struct{}{}
	}
}
