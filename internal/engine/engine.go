// Package engine implements the matchmaking, session, moderation, and
// message-pacing core. All inbound operations are serialized behind one
// mutex; the only concurrency interleaving with them is the pacer's delivery
// workers, which re-validate the session table before every send instead of
// caching it.
package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/driftchat/strangerbot/internal/auth"
	"github.com/driftchat/strangerbot/internal/block"
	"github.com/driftchat/strangerbot/internal/events"
	"github.com/driftchat/strangerbot/internal/metrics"
	"github.com/driftchat/strangerbot/internal/pacer"
	"github.com/driftchat/strangerbot/internal/report"
	"github.com/driftchat/strangerbot/internal/session"
)

// Sender delivers text to a user, fire-and-forget. The Telegram transport
// implements it; tests use a recording fake.
type Sender interface {
	SendText(userID int64, text string)
}

// Config holds engine parameters.
type Config struct {
	OwnerID int64        // user allowed to revoke/allow; 0 disables both
	Pacer   pacer.Config // queue capacity and inter-message delay
}

// Engine owns the waiting slot, the session table, the block registry, the
// report ledger, and the pacer. Every state change is published to the
// event sink.
type Engine struct {
	mu      sync.Mutex
	cfg     Config
	gate    *auth.Gate
	blocks  *block.Registry
	reports *report.Ledger
	table   *session.Table
	pacer   *pacer.Pacer
	sender  Sender
	sink    events.Sink

	waiting int64 // waiting-slot occupant, 0 when empty
}

// New creates an engine. gate and blocks may carry state restored from the
// persistence mirror; sink may be events.Discard.
func New(cfg Config, gate *auth.Gate, blocks *block.Registry, sender Sender, sink events.Sink) *Engine {
	table := session.NewTable()
	e := &Engine{
		cfg:     cfg,
		gate:    gate,
		blocks:  blocks,
		reports: report.NewLedger(),
		table:   table,
		sender:  sender,
		sink:    sink,
	}

	e.pacer = pacer.New(cfg.Pacer, sender, table.Partner)
	e.pacer.OnDrop = func(user int64, first bool) {
		metrics.MessagesDropped.Inc()
		if first {
			sender.SendText(user, MsgSlowDown)
		}
	}
	e.pacer.OnDeliver = func(from, to int64) {
		metrics.MessagesRelayed.Inc()
	}
	return e
}

// usable reports whether the user may drive state transitions.
func (e *Engine) usable(user int64) bool {
	return e.gate.IsAuthorized(user) && !e.gate.IsRevoked(user)
}

// IsAuthorized exposes the gate check for the transport glue.
func (e *Engine) IsAuthorized(user int64) bool { return e.gate.IsAuthorized(user) }

// IsRevoked exposes the revocation check for the transport glue.
func (e *Engine) IsRevoked(user int64) bool { return e.gate.IsRevoked(user) }

// Join redeems an invite code for a user and replies with the outcome.
func (e *Engine) Join(user int64, code string) {
	if e.gate.IsRevoked(user) {
		return
	}
	if e.gate.IsAuthorized(user) {
		e.sender.SendText(user, MsgAlreadyAuthorized)
		return
	}
	if !e.gate.Join(user, code) {
		e.sender.SendText(user, MsgInvalidCode)
		return
	}
	e.sender.SendText(user, MsgJoined)
	e.sink.Publish(events.Event{Type: events.TypeUserAuthorized, UserA: user}.Now())
}

// RequestMatch pairs the user with the waiting occupant when compatible, or
// parks the user in the waiting slot. An existing session is torn down
// first. Silent no-op for unauthorized or revoked users.
func (e *Engine) RequestMatch(user int64) {
	if !e.usable(user) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.endSessionLocked(user, events.ReasonRematch)

	w := e.waiting
	compatible := w != 0 && w != user &&
		!e.gate.IsRevoked(w) &&
		!e.blocks.Blocked(user, w)

	if compatible {
		chatID := uuid.New().String()
		if e.table.Create(user, w, chatID) {
			e.waiting = 0
			e.reports.ResetGuard(user)
			e.reports.ResetGuard(w)

			metrics.MatchesTotal.Inc()
			metrics.ActiveSessions.Set(float64(e.table.Len() / 2))
			metrics.WaitingUsers.Set(0)

			e.sender.SendText(user, MsgConnected)
			e.sender.SendText(w, MsgConnected)
			e.sink.Publish(events.Event{
				Type:   events.TypeMatchFound,
				ChatID: chatID,
				UserA:  user,
				UserB:  w,
			}.Now())
			return
		}
	}

	// The previous occupant, if any, is overwritten without notification:
	// the single-slot design has no queue of waiters.
	e.waiting = user
	metrics.WaitingUsers.Set(1)
	e.sender.SendText(user, MsgSearching)
}

// Stop ends the user's active session. The waiting slot is deliberately left
// untouched: a waiting user who sends stop keeps their place, matching the
// source system's behavior.
func (e *Engine) Stop(user int64) {
	if !e.usable(user) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.endSessionLocked(user, events.ReasonStop)
	e.sender.SendText(user, MsgChatStopped)
}

// Report files an abuse report against the user's current partner, then
// ends the session. No-op without a session or when the user already
// reported in this session.
func (e *Engine) Report(reporter int64) {
	if !e.usable(reporter) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	partner, ok := e.table.Partner(reporter)
	if !ok {
		return
	}
	chatID, _ := e.table.ChatID(reporter)

	count, ok := e.reports.File(reporter, partner)
	if !ok {
		return // already reported this session
	}

	metrics.ReportsFiled.Inc()
	e.sender.SendText(reporter, MsgReportConfirmed)
	e.sink.Publish(events.Event{
		Type:   events.TypeReportFiled,
		ChatID: chatID,
		UserA:  reporter,
		UserB:  partner,
		Count:  count,
	}.Now())

	e.endSessionLocked(reporter, events.ReasonReport)
}

// Block adds a permanent block between the user and their current partner,
// then ends the session. The partner only sees the generic disconnect text.
// No-op without a session.
func (e *Engine) Block(blocker int64) {
	if !e.usable(blocker) {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	partner, ok := e.table.Partner(blocker)
	if !ok {
		return
	}
	chatID, _ := e.table.ChatID(blocker)

	e.blocks.Add(blocker, partner)
	metrics.BlocksTotal.Inc()

	e.sender.SendText(blocker, MsgBlockConfirmed)
	e.sink.Publish(events.Event{
		Type:   events.TypeBlockAdded,
		ChatID: chatID,
		UserA:  blocker,
		UserB:  partner,
	}.Now())

	e.endSessionLocked(blocker, events.ReasonBlock)
}

// Relay enqueues plain text for paced delivery to the user's partner,
// redirecting unpaired users and gating unauthorized ones.
func (e *Engine) Relay(user int64, text string) {
	if e.gate.IsRevoked(user) {
		return
	}
	if !e.gate.IsAuthorized(user) {
		e.sender.SendText(user, MsgNeedInvite)
		return
	}
	if !e.table.Active(user) {
		e.sender.SendText(user, MsgUseNext)
		return
	}
	e.pacer.Enqueue(user, text)
}

// Revoke marks the target revoked, evicts them from the waiting slot, and
// ends their session. Only the configured owner may call it; it returns
// false for anyone else.
func (e *Engine) Revoke(caller, target int64) bool {
	if e.cfg.OwnerID == 0 || caller != e.cfg.OwnerID {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.gate.Revoke(target)
	if e.waiting == target {
		e.waiting = 0
		metrics.WaitingUsers.Set(0)
	}
	e.endSessionLocked(target, events.ReasonRevoke)
	e.sink.Publish(events.Event{Type: events.TypeUserRevoked, UserA: target}.Now())
	return true
}

// Allow clears the target's revoked flag and authorizes them. Owner only.
func (e *Engine) Allow(caller, target int64) bool {
	if e.cfg.OwnerID == 0 || caller != e.cfg.OwnerID {
		return false
	}

	e.gate.Allow(target)
	e.sink.Publish(events.Event{Type: events.TypeUserAllowed, UserA: target}.Now())
	return true
}

// endSessionLocked removes both directions of the user's session, stops the
// pacer queues on both sides, and notifies the former partner with the
// generic disconnect text. Callers hold e.mu. Idempotent: returns false when
// the user had no session.
func (e *Engine) endSessionLocked(user int64, reason string) bool {
	partner, chatID, ok := e.table.Remove(user)
	if !ok {
		return false
	}

	e.pacer.OnSessionEnd(user)
	e.pacer.OnSessionEnd(partner)

	metrics.ActiveSessions.Set(float64(e.table.Len() / 2))
	metrics.SessionsEnded.WithLabelValues(reason).Inc()

	e.sender.SendText(partner, MsgPartnerLeft)
	e.sink.Publish(events.Event{
		Type:   events.TypeSessionEnded,
		ChatID: chatID,
		UserA:  user,
		UserB:  partner,
		Reason: reason,
	}.Now())
	return true
}

// Partner exposes the session table lookup (used by the transport glue and
// tests).
func (e *Engine) Partner(user int64) (int64, bool) {
	return e.table.Partner(user)
}

// Waiting returns the current waiting-slot occupant (0 when empty).
func (e *Engine) Waiting() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.waiting
}

// Close stops the pacer's delivery workers.
func (e *Engine) Close() {
	e.pacer.Close()
}
