// Package feed streams engine events to operator WebSocket clients. It is a
// read-only observability surface on the bot's HTTP server: each connected
// client receives every engine event as a JSON text frame. Slow clients drop
// events rather than backpressure the engine.
package feed

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/driftchat/strangerbot/internal/events"
)

// subscriberBuffer is the per-client event backlog before drops start.
const subscriberBuffer = 64

type subscriber struct {
	ch chan []byte
}

// Broadcaster is an events.Sink that fans engine events out to all
// connected feed clients.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewBroadcaster creates a broadcaster with no clients.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*subscriber]struct{})}
}

// Publish implements events.Sink. Events that cannot be queued for a client
// (full buffer) are dropped for that client only.
func (b *Broadcaster) Publish(e events.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[feed] marshal event %s: %v", e.Type, err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- data:
		default: // slow client, drop
		}
	}
}

func (b *Broadcaster) add(sub *subscriber) {
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	log.Printf("[feed] client connected (%d total)", n)
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	n := len(b.subs)
	b.mu.Unlock()
	log.Printf("[feed] client disconnected (%d total)", n)
}

// Handler upgrades HTTP requests to WebSocket and streams events until the
// client disconnects.
func (b *Broadcaster) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			log.Printf("[feed] upgrade failed: %v", err)
			return
		}

		sub := &subscriber{ch: make(chan []byte, subscriberBuffer)}
		b.add(sub)

		done := make(chan struct{})

		// Reader: the feed is write-only, but frames must be consumed to
		// notice the client going away.
		go func() {
			defer close(done)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					if err != io.EOF {
						log.Printf("[feed] read: %v", err)
					}
					return
				}
			}
		}()

		go func() {
			defer func() {
				b.remove(sub)
				conn.Close()
			}()
			for {
				select {
				case data := <-sub.ch:
					if err := wsutil.WriteServerText(conn, data); err != nil {
						log.Printf("[feed] write: %v", err)
						return
					}
				case <-done:
					return
				}
			}
		}()
	})
}
