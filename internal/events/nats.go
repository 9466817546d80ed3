package events

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects for the engine event stream. Matching, session, and
// moderation events get their own subjects so consumers (the moderation
// sidecar, ops tooling) can subscribe selectively; access changes share one.
const (
	SubjectMatchFound   = "stranger.match.found"
	SubjectSessionEnded = "stranger.session.ended"
	SubjectReportFiled  = "stranger.report.filed"
	SubjectBlockAdded   = "stranger.block.added"
	SubjectAccess       = "stranger.access"
)

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "strangerbot",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NATSPublisher is a Sink that publishes engine events to NATS. Publishing
// is best-effort: a failed publish is logged and dropped, never surfaced to
// the engine.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to NATS with the given config.
func NewNATSPublisher(config NATSConfig) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())
	return &NATSPublisher{conn: nc}, nil
}

// Subject returns the NATS subject an event type is published on.
func Subject(eventType string) string {
	switch eventType {
	case TypeMatchFound:
		return SubjectMatchFound
	case TypeSessionEnded:
		return SubjectSessionEnded
	case TypeReportFiled:
		return SubjectReportFiled
	case TypeBlockAdded:
		return SubjectBlockAdded
	default:
		return SubjectAccess
	}
}

// Publish implements Sink.
func (p *NATSPublisher) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Printf("[nats] marshal event %s: %v", e.Type, err)
		return
	}
	if err := p.conn.Publish(Subject(e.Type), data); err != nil {
		log.Printf("[nats] publish %s: %v", e.Type, err)
	}
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}
	log.Printf("[nats] publisher closed")
}

// SubscribeReports subscribes to report events, decoding each message into
// an Event before invoking the handler. Used by the moderation sidecar.
func SubscribeReports(nc *nats.Conn, handler func(Event)) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(SubjectReportFiled, func(msg *nats.Msg) {
		var e Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			log.Printf("[nats] invalid report event: %v", err)
			return
		}
		handler(e)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", SubjectReportFiled, err)
	}
	return sub, nil
}
