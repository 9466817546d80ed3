package feed

import (
	"testing"
	"time"

	"github.com/driftchat/strangerbot/internal/events"
)

func TestBroadcaster_DeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}
	b.add(sub)

	b.Publish(events.Event{Type: events.TypeMatchFound, UserA: 1000, UserB: 2000})

	select {
	case data := <-sub.ch:
		if len(data) == 0 {
			t.Error("published event should carry a JSON payload")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the event")
	}
}

func TestBroadcaster_DropsWhenSubscriberFull(t *testing.T) {
	b := NewBroadcaster()
	sub := &subscriber{ch: make(chan []byte, 1)}
	b.add(sub)

	// Second publish must not block even though nobody drains the channel.
	done := make(chan struct{})
	go func() {
		b.Publish(events.Event{Type: events.TypeSessionEnded})
		b.Publish(events.Event{Type: events.TypeSessionEnded})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestBroadcaster_RemoveStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}
	b.add(sub)
	b.remove(sub)

	b.Publish(events.Event{Type: events.TypeReportFiled})

	select {
	case <-sub.ch:
		t.Error("removed subscriber should not receive events")
	default:
	}
}
