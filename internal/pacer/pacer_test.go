package pacer

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sent struct {
	to   int64
	text string
	at   time.Time
}

// fakeSender records deliveries. With a gate channel set, each SendText
// blocks until a token is sent, letting tests hold a worker mid-delivery.
type fakeSender struct {
	mu   sync.Mutex
	gate chan struct{}
	sent []sent
}

func (f *fakeSender) SendText(to int64, text string) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	f.sent = append(f.sent, sent{to: to, text: text, at: time.Now()})
	f.mu.Unlock()
}

func (f *fakeSender) snapshot() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func (f *fakeSender) waitForCount(t *testing.T, n int, timeout time.Duration) []sent {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if got := f.snapshot(); len(got) >= n {
			return got
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d deliveries (got %d)", n, len(f.snapshot()))
	return nil
}

// waitQueueLen polls until the user's queue reaches the given length.
func waitQueueLen(t *testing.T, p *Pacer, user int64, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if p.QueueLen(user) == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for queue length %d (got %d)", want, p.QueueLen(user))
}

// pairedWith returns a PartnerFunc whose session state can be flipped.
func pairedWith(partner int64) (PartnerFunc, *atomic.Bool) {
	active := &atomic.Bool{}
	active.Store(true)
	return func(user int64) (int64, bool) {
		if !active.Load() {
			return 0, false
		}
		return partner, true
	}, active
}

func TestPacer_FIFOWithSpacing(t *testing.T) {
	sender := &fakeSender{}
	partner, _ := pairedWith(2000)
	delay := 30 * time.Millisecond
	p := New(Config{Capacity: 10, Delay: delay}, sender, partner)
	defer p.Close()

	p.Enqueue(1000, "m1")
	p.Enqueue(1000, "m2")
	p.Enqueue(1000, "m3")

	got := sender.waitForCount(t, 3, 5*time.Second)
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].text != want || got[i].to != 2000 {
			t.Errorf("delivery %d = %q to %d; want %q to 2000", i, got[i].text, got[i].to, want)
		}
	}
	// Three paced sends span at least two delay intervals.
	if span := got[2].at.Sub(got[0].at); span < 2*delay-10*time.Millisecond {
		t.Errorf("delivery span = %v; want at least ~%v", span, 2*delay)
	}
}

func TestPacer_NoSessionIsNoop(t *testing.T) {
	sender := &fakeSender{}
	partner, active := pairedWith(2000)
	active.Store(false)
	p := New(Config{Capacity: 10, Delay: time.Millisecond}, sender, partner)
	defer p.Close()

	p.Enqueue(1000, "hello")

	if n := p.QueueLen(1000); n != 0 {
		t.Errorf("queue length = %d; want 0", n)
	}
	time.Sleep(20 * time.Millisecond)
	if got := sender.snapshot(); len(got) != 0 {
		t.Errorf("deliveries = %d; want 0", len(got))
	}
}

func TestPacer_CapacityDropAndSingleWarning(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{})}
	partner, _ := pairedWith(2000)
	p := New(Config{Capacity: 10, Delay: time.Millisecond}, sender, partner)
	defer p.Close()

	var drops, warnings int32
	p.OnDrop = func(user int64, first bool) {
		atomic.AddInt32(&drops, 1)
		if first {
			atomic.AddInt32(&warnings, 1)
		}
	}

	// Hold the worker inside SendText on the first message so the burst
	// below hits a queue that nobody is draining.
	p.Enqueue(1000, "m0")
	waitQueueLen(t, p, 1000, 0) // m0 popped, worker blocked at the gate

	// Twelve rapid messages against capacity ten: the last two drop.
	for i := 0; i < 12; i++ {
		p.Enqueue(1000, "m")
	}

	if n := p.QueueLen(1000); n != 10 {
		t.Errorf("queue length = %d; want 10", n)
	}
	if got := atomic.LoadInt32(&drops); got != 2 {
		t.Errorf("drops = %d; want 2", got)
	}
	if got := atomic.LoadInt32(&warnings); got != 1 {
		t.Errorf("warnings = %d; want exactly 1", got)
	}

	// Release the worker and confirm every queued message arrives once.
	go func() {
		for i := 0; i < 11; i++ {
			sender.gate <- struct{}{}
		}
	}()
	got := sender.waitForCount(t, 11, 10*time.Second)
	if len(got) != 11 {
		t.Errorf("deliveries = %d; want 11", len(got))
	}
}

func TestPacer_WarningResetsAfterDrain(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{})}
	partner, _ := pairedWith(2000)
	p := New(Config{Capacity: 1, Delay: time.Millisecond}, sender, partner)
	defer p.Close()

	var warnings int32
	p.OnDrop = func(user int64, first bool) {
		if first {
			atomic.AddInt32(&warnings, 1)
		}
	}

	p.Enqueue(1000, "a")
	waitQueueLen(t, p, 1000, 0) // a popped and held at the gate
	p.Enqueue(1000, "b")        // fills the queue (capacity 1)
	p.Enqueue(1000, "c")        // dropped, first warning

	sender.gate <- struct{}{} // deliver a
	sender.gate <- struct{}{} // deliver b
	sender.waitForCount(t, 2, 5*time.Second)
	waitQueueLen(t, p, 1000, 0)

	// Queue drained: the warned marker is cleared, so a new overrun warns again.
	p.Enqueue(1000, "d")
	waitQueueLen(t, p, 1000, 0) // d popped and held
	p.Enqueue(1000, "e")
	p.Enqueue(1000, "f") // dropped, second warning

	if got := atomic.LoadInt32(&warnings); got != 2 {
		t.Errorf("warnings = %d; want 2 (one per overrun)", got)
	}

	sender.gate <- struct{}{}
	sender.gate <- struct{}{}
	sender.waitForCount(t, 4, 5*time.Second)
}

func TestPacer_InFlightMessageNeverReachesNextPartner(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{})}
	var partner atomic.Int64
	partner.Store(2000)
	pf := func(user int64) (int64, bool) {
		p := partner.Load()
		if p == 0 {
			return 0, false
		}
		return p, true
	}
	p := New(Config{Capacity: 10, Delay: 300 * time.Millisecond}, sender, pf)
	defer p.Close()

	p.Enqueue(1000, "for-old-partner-1")
	p.Enqueue(1000, "for-old-partner-2")
	sender.gate <- struct{}{} // first message delivered to 2000
	sender.waitForCount(t, 1, 5*time.Second)
	waitQueueLen(t, p, 1000, 0) // second message popped, worker waiting out the delay

	// The session ends and the sender is immediately re-matched, inside the
	// delay window. The held message belongs to the old session; the new
	// stranger must never see it.
	p.OnSessionEnd(1000)
	partner.Store(3000)

	p.Enqueue(1000, "fresh")
	go func() { sender.gate <- struct{}{} }()
	got := sender.waitForCount(t, 2, 5*time.Second)

	for _, s := range got {
		if s.text == "for-old-partner-2" {
			t.Fatalf("old-session message %q was delivered to %d", s.text, s.to)
		}
	}
	last := got[len(got)-1]
	if last.text != "fresh" || last.to != 3000 {
		t.Errorf("delivery = %q to %d; want %q to 3000", last.text, last.to, "fresh")
	}
}

func TestPacer_StopsWhenSessionEnds(t *testing.T) {
	sender := &fakeSender{gate: make(chan struct{})}
	partner, active := pairedWith(2000)
	// The long delay leaves a wide window to end the session between the
	// first delivery and the worker's next send.
	p := New(Config{Capacity: 10, Delay: 300 * time.Millisecond}, sender, partner)
	defer p.Close()

	for i := 0; i < 5; i++ {
		p.Enqueue(1000, "m")
	}
	sender.gate <- struct{}{} // first message delivered
	sender.waitForCount(t, 1, 5*time.Second)

	// Session ends: the worker must stop without sending the rest.
	active.Store(false)
	p.OnSessionEnd(1000)

	time.Sleep(500 * time.Millisecond)
	if got := sender.snapshot(); len(got) != 1 {
		t.Errorf("deliveries after session end = %d; want 1", len(got))
	}
	if n := p.QueueLen(1000); n != 0 {
		t.Errorf("queue length after session end = %d; want 0", n)
	}
}
