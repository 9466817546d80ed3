// Package pacer relays each user's outbound messages to their partner at a
// fixed rate. Every sender gets a bounded FIFO queue and at most one delivery
// worker; the worker drains the queue one message per delay interval and
// exits when the queue empties or the session ends. A burst of typed
// messages therefore reaches the partner steadily instead of all at once.
package pacer

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Sender delivers text to a user. Delivery is fire-and-forget: failures are
// the transport's problem and are never surfaced here.
type Sender interface {
	SendText(userID int64, text string)
}

// PartnerFunc resolves a sender's current partner. Workers call it before
// every send so a session ending mid-delivery stops the drain immediately.
type PartnerFunc func(user int64) (int64, bool)

// Config holds tunable pacer parameters.
type Config struct {
	Capacity int           // max queued messages per sender
	Delay    time.Duration // minimum interval between two sends per sender
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Capacity: 10,
		Delay:    1 * time.Second,
	}
}

// queue is one sender's pending outbound messages plus worker markers.
// The rate limiter lives on the queue, not the worker, so pacing holds
// across worker restarts: draining the queue and immediately refilling it
// does not buy a free slot.
type queue struct {
	items   []string
	running bool   // a delivery worker owns this queue
	warned  bool   // "slow down" already sent during the current overrun
	epoch   uint64 // bumped on session end; stales in-flight messages
	lim     *rate.Limiter
}

// Pacer owns all per-sender queues and delivery workers.
type Pacer struct {
	mu      sync.Mutex
	queues  map[int64]*queue
	sender  Sender
	partner PartnerFunc
	cfg     Config

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// OnDrop is called outside the pacer lock when a message is dropped on a
	// full queue; first is true only for the first drop of an overrun. The
	// engine uses it for the one-time warning and drop metrics. Optional.
	OnDrop func(user int64, first bool)

	// OnDeliver is called outside the pacer lock after each relayed message.
	// Optional.
	OnDeliver func(from, to int64)
}

// New creates a pacer delivering through sender and validating sessions
// through partner.
func New(cfg Config, sender Sender, partner PartnerFunc) *Pacer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pacer{
		queues:  make(map[int64]*queue),
		sender:  sender,
		partner: partner,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Enqueue appends text to the sender's queue and starts a delivery worker if
// none is running. It is a no-op when the sender has no active session. On a
// full queue the message is dropped and OnDrop fires, with first=true only
// once per overrun.
func (p *Pacer) Enqueue(user int64, text string) {
	if _, ok := p.partner(user); !ok {
		return
	}

	p.mu.Lock()
	q := p.queues[user]
	if q == nil {
		q = &queue{lim: rate.NewLimiter(rate.Every(p.cfg.Delay), 1)}
		p.queues[user] = q
	}

	if len(q.items) >= p.cfg.Capacity {
		first := !q.warned
		q.warned = true
		p.mu.Unlock()
		if p.OnDrop != nil {
			p.OnDrop(user, first)
		}
		return
	}

	q.items = append(q.items, text)
	start := !q.running
	if start {
		q.running = true
		p.wg.Add(1)
	}
	p.mu.Unlock()

	if start {
		go p.deliver(user, q)
	}
}

// deliver is the per-sender worker loop. Exactly one instance runs per
// non-empty queue. The session is re-validated after every rate-limiter
// wait, never cached across it.
func (p *Pacer) deliver(user int64, q *queue) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			q.warned = false
			p.mu.Unlock()
			return
		}
		text := q.items[0]
		q.items = q.items[1:]
		epoch := q.epoch
		if len(q.items) == 0 {
			q.warned = false // queue has emptied; the next overrun warns again
		}
		p.mu.Unlock()

		if err := q.lim.Wait(p.ctx); err != nil {
			p.drain(q) // pacer shut down
			return
		}

		// The session that produced this message may have ended during the
		// wait. A partner lookup alone cannot tell: the sender may already be
		// re-matched, and the held text must never reach the new stranger.
		p.mu.Lock()
		stale := q.epoch != epoch
		p.mu.Unlock()
		if stale {
			continue
		}

		partner, ok := p.partner(user)
		if !ok {
			p.drain(q) // session ended mid-delivery
			return
		}

		p.sender.SendText(partner, text)
		if p.OnDeliver != nil {
			p.OnDeliver(user, partner)
		}
	}
}

// drain discards a queue's remaining messages and clears its markers.
func (p *Pacer) drain(q *queue) {
	p.mu.Lock()
	q.items = nil
	q.running = false
	q.warned = false
	p.mu.Unlock()
}

// OnSessionEnd discards the user's pending messages and stales any message a
// worker already holds, so nothing from the ended session is sent afterward,
// not even to a partner from a later match.
func (p *Pacer) OnSessionEnd(user int64) {
	p.mu.Lock()
	if q, ok := p.queues[user]; ok {
		q.items = nil
		q.warned = false
		q.epoch++
	}
	p.mu.Unlock()
}

// QueueLen returns the number of pending messages for a user.
func (p *Pacer) QueueLen(user int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if q, ok := p.queues[user]; ok {
		return len(q.items)
	}
	return 0
}

// Close cancels all delivery workers and waits for them to exit.
func (p *Pacer) Close() {
	p.cancel()
	p.wg.Wait()
}
